/*
go-lanewatch tracks vehicles across the frames of a traffic video and decides
when a tracked vehicle is committing a lane or zone violation.

Per frame detections from any object detector are associated to persistent
track identities, then each live track is tested against either a lane
boundary model or a set of polygon zones with allowed vehicle classes.  A
violation must hold for a number of consecutive frames before an event is
emitted, after which a cooldown suppresses duplicates for the same track and
region.

A Session processes a single stream and must be fed frames in order from one
goroutine.  Independent streams each use their own Session, a Pool hands out
Sessions for processing many streams in parallel.

See example code and usage in the example subdirectory.
*/
package lanewatch

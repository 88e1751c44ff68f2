/*
Package geometry provides the pure image-space geometry used by the tracker
and the region model: bounding boxes and their overlap, polygon membership,
line side tests and the fraction of a box lying beyond a lane boundary.

All coordinates are in image pixel space with the origin at the top-left
corner and y growing downward.
*/
package geometry

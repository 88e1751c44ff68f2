package lanewatch

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/swdee/go-lanewatch/postprocess"
)

// LoadLabels reads the labels used to train the detection Model from the
// given text file.  It should contain one label per line.
func LoadLabels(file string) ([]string, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels []string

	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return labels, nil
}

// LoadClassMap reads a labels file and maps each class index to a vehicle
// class, labels that are not vehicles map to unknown
func LoadClassMap(file string) (postprocess.ClassMap, error) {

	labels, err := LoadLabels(file)

	if err != nil {
		return nil, err
	}

	return postprocess.NewClassMap(labels), nil
}

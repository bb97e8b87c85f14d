package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DecodeNetwork reads one network response as JSON
func DecodeNetwork(r io.Reader) (*NetworkResponse, error) {
	var resp NetworkResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode network: %w", err)
	}
	return &resp, nil
}

// ReadNetworkFile loads a network response saved as a JSON file
func ReadNetworkFile(path string) (*NetworkResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open network file: %w", err)
	}
	defer f.Close()

	resp, err := DecodeNetwork(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return resp, nil
}

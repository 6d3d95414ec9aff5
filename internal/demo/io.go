package demo

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nemanja-m/gomr/internal/jobfuncs"
)

const defaultBufferSize = 1024 * 1024

// readLines reads filePath into memory as a slice of lines.
func readLines(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buffer := make([]byte, defaultBufferSize)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(buffer, defaultBufferSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// shuffleFilePath names the intermediate file one mapper writes for one
// reducer partition.
func shuffleFilePath(stagingDir string, mapperTaskNumber, partition int) string {
	return filepath.Join(stagingDir, fmt.Sprintf("map-%05d-part-%05d.jsonl", mapperTaskNumber, partition))
}

func writeShuffleFile(stagingDir string, mapperTaskNumber, partition int, kvs []jobfuncs.KeyValue) error {
	path := shuffleFilePath(stagingDir, mapperTaskNumber, partition)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for _, kv := range kvs {
		if err := enc.Encode(kv); err != nil {
			return err
		}
	}
	return nil
}

// readShuffleFiles reads every mapper's partition file for the given
// reducer, across the whole staging directory.
func readShuffleFiles(stagingDir string, partition int) ([]jobfuncs.KeyValue, error) {
	suffix := fmt.Sprintf("-part-%05d.jsonl", partition)
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return nil, err
	}

	var kvs []jobfuncs.KeyValue
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		file, err := os.Open(filepath.Join(stagingDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(file)
		for dec.More() {
			var kv jobfuncs.KeyValue
			if err := dec.Decode(&kv); err != nil {
				file.Close()
				return nil, err
			}
			kvs = append(kvs, kv)
		}
		file.Close()
	}
	return kvs, nil
}

// reduceSorted groups sorted key-value pairs by key and applies fn once
// per key.
func reduceSorted(sorted []jobfuncs.KeyValue, fn jobfuncs.ReduceFunc) []jobfuncs.KeyValue {
	var results []jobfuncs.KeyValue
	i := 0
	for i < len(sorted) {
		key := sorted[i].Key
		var values []string
		for i < len(sorted) && sorted[i].Key == key {
			values = append(values, sorted[i].Value)
			i++
		}
		results = append(results, fn(key, values))
	}
	return results
}

func writeResults(path string, results []jobfuncs.KeyValue) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, kv := range results {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", kv.Key, kv.Value); err != nil {
			return err
		}
	}
	return w.Flush()
}

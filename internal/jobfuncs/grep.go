package jobfuncs

import "strings"

// NewGrepJob builds a grep job function pair matching pattern as a plain
// substring, supplied per job via JobInfo.Metadata["pattern"].
func NewGrepJob(pattern string) JobFunc {
	return JobFunc{
		Map: func(key, line string) []KeyValue {
			if pattern == "" || strings.Contains(line, pattern) {
				return []KeyValue{{Key: key, Value: line}}
			}
			return nil
		},
		Reduce: func(key string, values []string) KeyValue {
			return KeyValue{Key: key, Value: values[0]}
		},
	}
}

func init() {
	Register("grep", NewGrepJob(""))
}

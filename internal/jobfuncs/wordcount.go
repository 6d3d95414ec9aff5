package jobfuncs

import (
	"regexp"
	"strconv"
	"strings"
)

var wordPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

func init() {
	Register("wordcount", JobFunc{Map: wordcountMap, Reduce: wordcountReduce})
}

func wordcountMap(_, line string) []KeyValue {
	var kvs []KeyValue
	for _, word := range strings.Split(line, " ") {
		word = strings.ToLower(word)
		word = wordPattern.ReplaceAllString(word, "")
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		kvs = append(kvs, KeyValue{Key: word, Value: "1"})
	}
	return kvs
}

func wordcountReduce(word string, counts []string) KeyValue {
	total := 0
	for _, count := range counts {
		val, _ := strconv.Atoi(count)
		total += val
	}
	return KeyValue{Key: word, Value: strconv.Itoa(total)}
}

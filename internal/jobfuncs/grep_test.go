package jobfuncs

import "testing"

func TestGrepMap_EmptyPatternMatchesEverything(t *testing.T) {
	job := NewGrepJob("")
	kvs := job.Map("line-1", "anything at all")
	if len(kvs) != 1 || kvs[0].Value != "anything at all" {
		t.Fatalf("expected empty pattern to match every line, got %+v", kvs)
	}
}

func TestGrepMap_FiltersNonMatchingLines(t *testing.T) {
	job := NewGrepJob("needle")
	if kvs := job.Map("k", "haystack only"); len(kvs) != 0 {
		t.Fatalf("expected no match, got %+v", kvs)
	}
	kvs := job.Map("k", "found the needle here")
	if len(kvs) != 1 || kvs[0].Key != "k" {
		t.Fatalf("expected a match keyed by the input key, got %+v", kvs)
	}
}

func TestGrepReduce_ReturnsFirstValue(t *testing.T) {
	job := NewGrepJob("")
	kv := job.Reduce("k", []string{"first", "second"})
	if kv.Value != "first" {
		t.Fatalf("expected reduce to return the first value, got %q", kv.Value)
	}
}

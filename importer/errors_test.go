package importer

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	mapping := MappingErrorf("missing field %s", "email")
	consistency := ConsistencyErrorf("total mismatch")
	transient := errors.New("connection refused")

	if !IsMappingError(mapping) {
		t.Fatal("mapping error not recognized")
	}
	if IsMappingError(consistency) || IsMappingError(transient) {
		t.Fatal("non-mapping error classified as mapping")
	}
	if !IsConsistencyError(consistency) {
		t.Fatal("consistency error not recognized")
	}
	if IsConsistencyError(mapping) || IsConsistencyError(transient) {
		t.Fatal("non-consistency error classified as consistency")
	}

	// Classification must survive wrapping.
	wrapped := fmt.Errorf("job 42: %w", mapping)
	if !IsMappingError(wrapped) {
		t.Fatal("wrapped mapping error not recognized")
	}
}

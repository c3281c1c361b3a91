package batch

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    []string
		wantErr bool
	}{
		{"single string", "msg123", []string{"msg123"}, false},
		{"array of strings", []interface{}{"a", "b", "c"}, []string{"a", "b", "c"}, false},
		{"nil", nil, nil, true},
		{"empty string", "", nil, true},
		{"empty array", []interface{}{}, nil, true},
		{"array with non-string", []interface{}{"a", 42}, nil, true},
		{"array with empty string", []interface{}{"a", ""}, nil, true},
		{"wrong type", 42, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.input, "messageIds")
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcessBatchContinuesOnFailure(t *testing.T) {
	results := ProcessBatch([]string{"a", "b", "c"}, func(id string) (string, error) {
		if id == "b" {
			return "", errors.New("boom")
		}
		return id + " done", nil
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Status != "success" || results[1].Status != "error" || results[2].Status != "success" {
		t.Errorf("unexpected statuses: %+v", results)
	}
	if results[1].Error != "boom" {
		t.Errorf("error text = %q", results[1].Error)
	}
}

func TestFormatResultsCounts(t *testing.T) {
	out := FormatResults([]Result{
		{ID: "a", Status: "success", Result: "ok"},
		{ID: "b", Status: "error", Error: "boom"},
	})

	var br BatchResult
	if err := json.Unmarshal([]byte(out), &br); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if br.Total != 2 || br.Successful != 1 || br.Failed != 1 {
		t.Errorf("unexpected counts: %+v", br)
	}
}

package mongostore

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/perceptlab/go-frame-scheduler/data"
)

var _ data.Store = (*Store)(nil)

// Main test items:
//  1. Top-level fields carry the result's identity and timing.
//  2. Rows become an array of documents, preserving per-row keys.
//  3. Columns survive as an ordered list.
func TestBuildDocument(t *testing.T) {
	started := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	result := &data.Result{
		Experiment: "stroop",
		Session:    "p01",
		Started:    started,
		Columns:    []string{"word", "rt"},
		Rows: []map[string]any{
			{"word": "RED", "rt": 0.423},
			{"word": "BLUE"},
		},
	}

	doc := buildDocument(result)

	if doc["experiment"] != "stroop" || doc["session"] != "p01" {
		t.Fatalf("document identity = %v/%v, want stroop/p01", doc["experiment"], doc["session"])
	}
	if doc["started"] != started {
		t.Fatalf("document started = %v, want %v", doc["started"], started)
	}
	if _, ok := doc["saved_at"]; !ok {
		t.Fatal("document has no saved_at field")
	}

	columns, ok := doc["columns"].([]string)
	if !ok || len(columns) != 2 || columns[0] != "word" || columns[1] != "rt" {
		t.Fatalf("document columns = %v, want [word rt]", doc["columns"])
	}

	rows, ok := doc["rows"].(bson.A)
	if !ok || len(rows) != 2 {
		t.Fatalf("document rows = %v, want 2 row documents", doc["rows"])
	}
	first, ok := rows[0].(bson.M)
	if !ok || first["word"] != "RED" || first["rt"] != 0.423 {
		t.Fatalf("row 0 document = %v, want word=RED rt=0.423", rows[0])
	}
	second, ok := rows[1].(bson.M)
	if !ok {
		t.Fatalf("row 1 document = %v, want a bson.M", rows[1])
	}
	if _, present := second["rt"]; present {
		t.Fatal("row 1 document carries an rt the row never recorded")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := (*Config)(nil).withDefaults()

	if cfg.URI != DefaultURI {
		t.Fatalf("URI = %q, want %q", cfg.URI, DefaultURI)
	}
	if cfg.Database != DefaultDatabase || cfg.Collection != DefaultCollection {
		t.Fatalf("database/collection = %q/%q, want %q/%q",
			cfg.Database, cfg.Collection, DefaultDatabase, DefaultCollection)
	}
	if cfg.ConnectTimeout != DefaultConnectTimeout {
		t.Fatalf("ConnectTimeout = %v, want %v", cfg.ConnectTimeout, DefaultConnectTimeout)
	}

	custom := (&Config{URI: "mongodb://db:27017", Database: "lab"}).withDefaults()
	if custom.URI != "mongodb://db:27017" || custom.Database != "lab" {
		t.Fatalf("explicit fields overwritten: %+v", custom)
	}
	if custom.Collection != DefaultCollection {
		t.Fatalf("Collection = %q, want default %q", custom.Collection, DefaultCollection)
	}
}

func TestNewNilCollectionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New(nil) did not panic")
		}
	}()
	New(nil)
}

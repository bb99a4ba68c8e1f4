package catalog

import (
	"path/filepath"
	"testing"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRecordAndReadBatch(t *testing.T) {
	c := openTestCatalog(t)

	batch := BatchRecord{
		ID:         "batch-1",
		Mode:       "both",
		State:      "partial",
		Lines:      3,
		Items:      2,
		Failures:   1,
		TotalBytes: 4096,
	}
	items := []ItemRecord{
		{BatchID: "batch-1", Name: "Clip A.mp4", SourceURL: "https://example.com/v/1", Kind: "video", MediaPath: "/out/Clip A.mp4", TranscriptPath: "/out/Clip A.txt", SizeBytes: 2048},
		{BatchID: "batch-1", Name: "Photo.jpg", SourceURL: "https://example.com/p/2", Kind: "image", MediaPath: "/out/Photo.jpg", SizeBytes: 2048},
	}
	failures := []FailureRecord{
		{BatchID: "batch-1", SourceURL: "https://example.com/v/3", Message: "no usable output"},
	}

	if err := c.RecordBatch(batch, items, failures); err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}

	records, err := c.RecentBatches(10)
	if err != nil {
		t.Fatalf("RecentBatches: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	got := records[0]
	if got.ID != "batch-1" || got.State != "partial" || got.Lines != 3 || got.Items != 2 || got.Failures != 1 || got.TotalBytes != 4096 {
		t.Fatalf("record = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt should be set by the database")
	}
}

func TestBatchFailuresInsertOrder(t *testing.T) {
	c := openTestCatalog(t)

	failures := []FailureRecord{
		{BatchID: "batch-1", SourceURL: "https://a.example.com", Message: "first"},
		{BatchID: "batch-1", SourceURL: "https://b.example.com", Message: "second"},
	}
	if err := c.RecordBatch(BatchRecord{ID: "batch-1", Mode: "both", State: "failed", Lines: 2, Failures: 2}, nil, failures); err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}

	got, err := c.BatchFailures("batch-1")
	if err != nil {
		t.Fatalf("BatchFailures: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("failures = %d, want 2", len(got))
	}
	if got[0].Message != "first" || got[1].Message != "second" {
		t.Fatalf("failures out of order: %+v", got)
	}

	if got, err := c.BatchFailures("missing"); err != nil || len(got) != 0 {
		t.Fatalf("unknown batch should yield no failures, got %v, %v", got, err)
	}
}

func TestRecordBatchDuplicateID(t *testing.T) {
	c := openTestCatalog(t)

	batch := BatchRecord{ID: "batch-1", Mode: "both", State: "completed"}
	if err := c.RecordBatch(batch, nil, nil); err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}
	if err := c.RecordBatch(batch, nil, nil); err == nil {
		t.Fatalf("duplicate batch id should be rejected")
	}

	count, err := c.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestRecentBatchesLimit(t *testing.T) {
	c := openTestCatalog(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := c.RecordBatch(BatchRecord{ID: id, Mode: "both", State: "completed"}, nil, nil); err != nil {
			t.Fatalf("RecordBatch(%s): %v", id, err)
		}
	}

	records, err := c.RecentBatches(2)
	if err != nil {
		t.Fatalf("RecentBatches: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	if err := c.Close(); err != nil {
		t.Fatalf("Close on nil catalog: %v", err)
	}
	if err := c.RecordBatch(BatchRecord{ID: "x"}, nil, nil); err == nil {
		t.Fatalf("RecordBatch on nil catalog should fail")
	}
	if _, err := c.RecentBatches(1); err == nil {
		t.Fatalf("RecentBatches on nil catalog should fail")
	}
}

package tripdesk

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	datasetVersionV1 = "1"
	// DatasetVersion exposes the current fallback dataset format version for tooling.
	DatasetVersion = datasetVersionV1
)

// DatasetDocument is a hand-authored fallback dataset for one resource kind.
type DatasetDocument[T Record] struct {
	Version string       `json:"version" yaml:"version"`
	Kind    ResourceKind `json:"kind" yaml:"kind"`
	Records []T          `json:"records" yaml:"records"`
	Source  string       `json:"-" yaml:"-"`
}

// ReadDataset loads a dataset file from disk.
func ReadDataset[T Record](path string, kind ResourceKind) (*DatasetDocument[T], error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("tripdesk: open dataset %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeDataset[T](f, kind)
	if err != nil {
		return nil, fmt.Errorf("tripdesk: decode dataset %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeDataset reads a dataset from any reader. Unknown fields are rejected.
func DecodeDataset[T Record](r io.Reader, kind ResourceKind) (*DatasetDocument[T], error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc DatasetDocument[T]
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("tripdesk: dataset is empty")
		}
		return nil, fmt.Errorf("tripdesk: parse dataset: %w", err)
	}
	doc.applyDefaults(kind)
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks version, kind, id uniqueness, and that statuses belong to the kind's machine.
func (doc *DatasetDocument[T]) Validate() error {
	if doc.Version != datasetVersionV1 {
		return fmt.Errorf("tripdesk: unsupported dataset version %q", doc.Version)
	}
	machine := MachineFor(doc.Kind)
	if machine == nil {
		return fmt.Errorf("tripdesk: dataset kind %q is unknown", doc.Kind)
	}
	seen := make(map[string]struct{}, len(doc.Records))
	for idx, rec := range doc.Records {
		id := rec.RecordID()
		if id == "" {
			return fmt.Errorf("tripdesk: dataset record at index %d is missing id", idx)
		}
		if _, exists := seen[id]; exists {
			return fmt.Errorf("tripdesk: dataset duplicates id %s", id)
		}
		seen[id] = struct{}{}
		if !machine.Valid(rec.RecordStatus()) {
			return fmt.Errorf("tripdesk: dataset record %s has status %q not valid for %s", id, rec.RecordStatus(), doc.Kind)
		}
	}
	return nil
}

func (doc *DatasetDocument[T]) applyDefaults(kind ResourceKind) {
	if doc.Version == "" {
		doc.Version = datasetVersionV1
	}
	if doc.Kind == "" {
		doc.Kind = kind
	}
}

// DatasetSummary describes a validated dataset of any kind.
type DatasetSummary struct {
	Kind    ResourceKind
	Records int
}

// InspectDataset validates a dataset without knowing its kind up front.
func InspectDataset(r io.Reader) (DatasetSummary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return DatasetSummary{}, fmt.Errorf("tripdesk: read dataset: %w", err)
	}
	var header struct {
		Kind ResourceKind `yaml:"kind"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return DatasetSummary{}, fmt.Errorf("tripdesk: parse dataset header: %w", err)
	}
	switch header.Kind {
	case KindBookings:
		return summarize[Booking](data, header.Kind)
	case KindBuses:
		return summarize[Bus](data, header.Kind)
	case KindCampaigns:
		return summarize[Campaign](data, header.Kind)
	case KindPackages:
		return summarize[TourPackage](data, header.Kind)
	case KindPayments:
		return summarize[Payment](data, header.Kind)
	case KindDocuments:
		return summarize[Document](data, header.Kind)
	case KindGallery:
		return summarize[GalleryImage](data, header.Kind)
	default:
		return DatasetSummary{}, fmt.Errorf("tripdesk: dataset kind %q is unknown", header.Kind)
	}
}

func summarize[T Record](data []byte, kind ResourceKind) (DatasetSummary, error) {
	doc, err := DecodeDataset[T](bytes.NewReader(data), kind)
	if err != nil {
		return DatasetSummary{}, err
	}
	return DatasetSummary{Kind: doc.Kind, Records: len(doc.Records)}, nil
}

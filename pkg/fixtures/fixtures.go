// Package fixtures ships the sample datasets shown when the upstream API is unreachable. The
// same data seeds the development API.
package fixtures

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
)

//go:embed data/*.yaml
var embedded embed.FS

// Set holds one dataset per kind.
type Set struct {
	Bookings  []tripdesk.Booking
	Buses     []tripdesk.Bus
	Campaigns []tripdesk.Campaign
	Packages  []tripdesk.TourPackage
	Payments  []tripdesk.Payment
	Documents []tripdesk.Document
	Gallery   []tripdesk.GalleryImage
}

// Default decodes the embedded datasets.
func Default() (*Set, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("fixtures: open embedded data: %w", err)
	}
	return load(sub, nil)
}

// MustDefault panics when the embedded datasets are invalid.
func MustDefault() *Set {
	set, err := Default()
	if err != nil {
		panic(err)
	}
	return set
}

// Load reads <kind>.yaml files from dir. Kinds without a file use the embedded dataset.
func Load(dir string) (*Set, error) {
	if dir == "" {
		return Default()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("fixtures: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fixtures: %s is not a directory", dir)
	}
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("fixtures: open embedded data: %w", err)
	}
	return load(os.DirFS(dir), sub)
}

func load(primary, secondary fs.FS) (*Set, error) {
	var set Set
	var err error
	if set.Bookings, err = decode[tripdesk.Booking](primary, secondary, tripdesk.KindBookings); err != nil {
		return nil, err
	}
	if set.Buses, err = decode[tripdesk.Bus](primary, secondary, tripdesk.KindBuses); err != nil {
		return nil, err
	}
	if set.Campaigns, err = decode[tripdesk.Campaign](primary, secondary, tripdesk.KindCampaigns); err != nil {
		return nil, err
	}
	if set.Packages, err = decode[tripdesk.TourPackage](primary, secondary, tripdesk.KindPackages); err != nil {
		return nil, err
	}
	if set.Payments, err = decode[tripdesk.Payment](primary, secondary, tripdesk.KindPayments); err != nil {
		return nil, err
	}
	if set.Documents, err = decode[tripdesk.Document](primary, secondary, tripdesk.KindDocuments); err != nil {
		return nil, err
	}
	if set.Gallery, err = decode[tripdesk.GalleryImage](primary, secondary, tripdesk.KindGallery); err != nil {
		return nil, err
	}
	return &set, nil
}

func decode[T tripdesk.Record](primary, secondary fs.FS, kind tripdesk.ResourceKind) ([]T, error) {
	name := string(kind) + ".yaml"
	data, err := fs.ReadFile(primary, name)
	if errors.Is(err, fs.ErrNotExist) && secondary != nil {
		data, err = fs.ReadFile(secondary, name)
	}
	if err != nil {
		return nil, fmt.Errorf("fixtures: read %s: %w", name, err)
	}
	doc, err := tripdesk.DecodeDataset[T](bytes.NewReader(data), kind)
	if err != nil {
		return nil, fmt.Errorf("fixtures: %s: %w", name, err)
	}
	return doc.Records, nil
}

// Files lists the embedded dataset file names, e.g. for `tripctl dataset validate --embedded`.
func Files() []string {
	entries, err := fs.ReadDir(embedded, "data")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, path.Join("data", e.Name()))
	}
	return out
}

// Open returns an embedded dataset file by the name Files reports.
func Open(name string) (fs.File, error) {
	return embedded.Open(filepath.ToSlash(name))
}

// Len returns the number of records of kind.
func (s *Set) Len(kind tripdesk.ResourceKind) int {
	switch kind {
	case tripdesk.KindBookings:
		return len(s.Bookings)
	case tripdesk.KindBuses:
		return len(s.Buses)
	case tripdesk.KindCampaigns:
		return len(s.Campaigns)
	case tripdesk.KindPackages:
		return len(s.Packages)
	case tripdesk.KindPayments:
		return len(s.Payments)
	case tripdesk.KindDocuments:
		return len(s.Documents)
	case tripdesk.KindGallery:
		return len(s.Gallery)
	}
	return 0
}

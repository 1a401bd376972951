package datasource

import (
	"fmt"

	"github.com/vanderheijden86/orbview/pkg/loader"
	"github.com/vanderheijden86/orbview/pkg/model"
)

// LoadDataset discovers the sources in dataDir, picks the freshest valid one
// and loads it. An empty dataDir resolves through loader.GetDataDir.
func LoadDataset(dataDir string, opts loader.ParseOptions) (model.Dataset, DataSource, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		DataDir:                dataDir,
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		return model.Dataset{}, DataSource{}, err
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		return model.Dataset{}, DataSource{}, fmt.Errorf("%s: %w", dataDir, err)
	}
	ds, err := LoadFromSource(best, opts)
	if err != nil {
		return model.Dataset{}, best, err
	}
	return ds, best, nil
}

// LoadFromSource loads the dataset from a specific DataSource, dispatching to
// the appropriate reader based on source type.
func LoadFromSource(source DataSource, opts loader.ParseOptions) (model.Dataset, error) {
	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return model.Dataset{}, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		return reader.LoadDataset()

	case SourceTypeJSON:
		return loader.LoadDatasetWithOptions(source.Path, opts)

	default:
		return model.Dataset{}, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

func loadQuiet(source DataSource) (model.Dataset, error) {
	return LoadFromSource(source, loader.ParseOptions{WarningHandler: func(string) {}})
}

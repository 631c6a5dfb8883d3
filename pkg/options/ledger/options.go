// Package ledger provides options for the ingestion ledger database.
package ledger

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/valuerag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Options contains ledger database configuration.
type Options struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Driver  string `json:"driver" mapstructure:"driver"`
	// DSN 对 sqlite 为文件路径。
	DSN string `json:"-" mapstructure:"dsn"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Enabled: true,
		Driver:  DriverSQLite,
		DSN:     "data/ingest.db",
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "ledger."
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Record ingestion results in a database.")
	fs.StringVar(&o.Driver, p+"driver", o.Driver, "Ledger database driver (sqlite, mysql, postgres).")
	fs.StringVar(&o.DSN, p+"dsn", o.DSN, "Ledger database DSN or sqlite file path.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}
	var errs []error
	switch o.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("ledger.driver %q is not supported", o.Driver))
	}
	if o.DSN == "" {
		errs = append(errs, fmt.Errorf("ledger.dsn is required"))
	}
	return errs
}

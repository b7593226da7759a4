// Package geoip resolves IP addresses to country/city using a local
// GeoLite2 database.
package geoip

import (
	"errors"
	"log/slog"
	"net"
	"os"

	"github.com/oschwald/geoip2-golang"
	"github.com/pariz/gountries"
)

// Bucket labels for addresses that cannot be resolved.
const (
	UnknownCountry = "Unknown"
	UnknownCity    = "Unknown"
	LocalCountry   = "Local"
	LocalCity      = "Local"
)

// ErrUnresolvable is returned when an address cannot be mapped to a location.
var ErrUnresolvable = errors.New("geoip: address could not be resolved")

// Location is a resolved country/city pair.
type Location struct {
	Country string
	City    string
}

// Unknown returns the placeholder location for unresolvable addresses.
func Unknown() Location {
	return Location{Country: UnknownCountry, City: UnknownCity}
}

// Resolver maps IP addresses to locations. The GeoLite2 database is optional:
// a resolver without one degrades every lookup to ErrUnresolvable, which
// callers bucket as Unknown/Unknown.
type Resolver struct {
	reader    *geoip2.Reader
	countries *gountries.Query
	logger    *slog.Logger
}

// NewResolver opens the GeoLite2 City database at the configured path.
// A missing or unreadable database is logged and tolerated.
func NewResolver(path string, logger *slog.Logger) *Resolver {
	r := &Resolver{
		countries: gountries.New(),
		logger:    logger.With(slog.String("component", "geoip")),
	}

	if path == "" {
		r.logger.Info("GeoIP database path not configured - lookups disabled")
		return r
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		r.logger.Warn("GeoLite2 database not found - lookups disabled",
			slog.String("path", path),
			slog.String("hint", "Download from https://www.maxmind.com/en/geolite2/signup"))
		return r
	}

	reader, err := geoip2.Open(path)
	if err != nil {
		r.logger.Error("Failed to open GeoLite2 database",
			slog.String("path", path),
			slog.Any("error", err))
		return r
	}

	r.reader = reader
	r.logger.Info("GeoLite2 database initialized", slog.String("path", path))
	return r
}

// Resolve maps an IP address to a country/city pair. Private and loopback
// addresses resolve to Local/Local without touching the database.
func (r *Resolver) Resolve(ipAddress string) (Location, error) {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return Unknown(), ErrUnresolvable
	}

	if ip.IsLoopback() || ip.IsPrivate() {
		return Location{Country: LocalCountry, City: LocalCity}, nil
	}

	if r.reader == nil {
		return Unknown(), ErrUnresolvable
	}

	record, err := r.reader.City(ip)
	if err != nil {
		r.logger.Debug("GeoIP lookup failed",
			slog.String("ip", ipAddress),
			slog.Any("error", err))
		return Unknown(), ErrUnresolvable
	}

	loc := Location{
		Country: r.countryName(record.Country.IsoCode, record.Country.Names["en"]),
		City:    record.City.Names["en"],
	}
	if loc.Country == "" {
		loc.Country = UnknownCountry
	}
	if loc.City == "" {
		loc.City = UnknownCity
	}
	return loc, nil
}

// countryName prefers the common name from the gountries dataset, falling
// back to the GeoLite2 English name.
func (r *Resolver) countryName(isoCode, fallback string) string {
	if isoCode == "" || isoCode == "--" {
		return fallback
	}
	country, err := r.countries.FindCountryByAlpha(isoCode)
	if err != nil {
		return fallback
	}
	return country.Name.Common
}

// Close releases the GeoLite2 database handle.
func (r *Resolver) Close() {
	if r.reader != nil {
		r.reader.Close()
	}
}

// Package config loads runtime settings from the environment (optionally
// seeded from a .env file) and validates them before any processing starts.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"github.com/sepa-leadgen/internal/model"
)

// Settings is the validated runtime configuration.
type Settings struct {
	Match    MatchSettings
	Base     BaseSettings
	Database DatabaseSettings
	Web      WebSettings
	Log      LogSettings

	// RulesFile optionally replaces the default scoring rule table.
	RulesFile string `validate:"omitempty,file"`
	Counties  []string
}

// MatchSettings are the dedupe and merge gates.
type MatchSettings struct {
	DedupeThreshold     float64 `validate:"gte=0,lte=100"`
	BucketPrecision     int     `validate:"gte=1,lte=12"`
	SectorRadiusMeters  float64 `validate:"gt=0"`
	SectorMinSimilarity float64 `validate:"gte=0,lte=100"`
	PlacesRadiusMeters  float64 `validate:"gt=0"`
	MultiSiteMiles      float64 `validate:"gt=0"`
	Workers             int     `validate:"gte=0"`
}

// BaseSettings is the depot that proximity bands are measured from.
type BaseSettings struct {
	Address string
	Lat     float64 `validate:"gte=-90,lte=90"`
	Lon     float64 `validate:"gte=-180,lte=180"`
}

// DatabaseSettings hold the Postgres connection parameters.
type DatabaseSettings struct {
	Host         string `validate:"required"`
	Port         int    `validate:"gte=1,lte=65535"`
	User         string `validate:"required"`
	Password     string
	Name         string `validate:"required"`
	SSLMode      string `validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns int    `validate:"gte=1"`
	MaxIdleConns int    `validate:"gte=0"`
}

// DSN renders a lib/pq key=value connection string.
func (d DatabaseSettings) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dsnValue(d.Host), d.Port, dsnValue(d.User), dsnValue(d.Password), dsnValue(d.Name), d.SSLMode)
}

// dsnValue single-quotes v when it is empty or holds characters the
// key=value parser would split on.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// URL renders a postgres:// URL, as used by the migration driver.
func (d DatabaseSettings) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// WebSettings configure the read-only API server.
type WebSettings struct {
	Host          string
	Port          int `validate:"gte=1,lte=65535"`
	ExportEnabled bool
}

// LogSettings configure the zap logger.
type LogSettings struct {
	Level      string `validate:"oneof=debug info warn error"`
	File       string
	MaxSizeMB  int `validate:"gte=1"`
	MaxBackups int `validate:"gte=0"`
	MaxAgeDays int `validate:"gte=0"`
}

// DefaultSettings returns the production defaults: base at Willow Grove, PA
// and the five south-eastern Pennsylvania counties.
func DefaultSettings() *Settings {
	return &Settings{
		Match: MatchSettings{
			DedupeThreshold:     90,
			BucketPrecision:     7,
			SectorRadiusMeters:  150,
			SectorMinSimilarity: 88,
			PlacesRadiusMeters:  200,
			MultiSiteMiles:      25,
			Workers:             0,
		},
		Base: BaseSettings{
			Address: "2450 Old Welsh Road, Willow Grove, PA 19090",
			Lat:     40.144,
			Lon:     -75.128,
		},
		Database: DatabaseSettings{
			Host:         "localhost",
			Port:         5432,
			User:         "leadgen",
			Password:     "password",
			Name:         "leadgen",
			SSLMode:      "disable",
			MaxOpenConns: 20,
			MaxIdleConns: 10,
		},
		Web: WebSettings{
			Host:          "0.0.0.0",
			Port:          8080,
			ExportEnabled: true,
		},
		Log: LogSettings{
			Level:      "info",
			File:       "logs/leadgen.log",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Counties: []string{"Bucks", "Montgomery", "Philadelphia", "Chester", "Delaware"},
	}
}

// LoadSettings reads settings from the environment over the defaults and
// validates them.
func LoadSettings() (*Settings, error) {
	d := DefaultSettings()
	s := &Settings{
		Match: MatchSettings{
			DedupeThreshold:     GetEnvFloat("DEDUPE_SIMILARITY_THRESHOLD", d.Match.DedupeThreshold),
			BucketPrecision:     GetEnvInt("BUCKET_PRECISION", d.Match.BucketPrecision),
			SectorRadiusMeters:  GetEnvFloat("NAICS_MATCH_RADIUS_METERS", d.Match.SectorRadiusMeters),
			SectorMinSimilarity: GetEnvFloat("NAICS_NAME_SIMILARITY_MIN", d.Match.SectorMinSimilarity),
			PlacesRadiusMeters:  GetEnvFloat("PLACES_MATCH_RADIUS_METERS", d.Match.PlacesRadiusMeters),
			MultiSiteMiles:      GetEnvFloat("MULTI_SITE_MILES", d.Match.MultiSiteMiles),
			Workers:             GetEnvInt("MERGE_WORKERS", d.Match.Workers),
		},
		Base: BaseSettings{
			Address: GetEnv("BASE_ADDRESS", d.Base.Address),
			Lat:     GetEnvFloat("BASE_LAT", d.Base.Lat),
			Lon:     GetEnvFloat("BASE_LON", d.Base.Lon),
		},
		Database: DatabaseSettings{
			Host:         GetEnv("PGHOST", d.Database.Host),
			Port:         GetEnvInt("PGPORT", d.Database.Port),
			User:         GetEnv("PGUSER", d.Database.User),
			Password:     GetEnv("PGPASSWORD", d.Database.Password),
			Name:         GetEnv("PGDATABASE", d.Database.Name),
			SSLMode:      GetEnv("PGSSLMODE", d.Database.SSLMode),
			MaxOpenConns: GetEnvInt("DB_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: GetEnvInt("DB_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Web: WebSettings{
			Host:          GetEnv("WEB_HOST", d.Web.Host),
			Port:          GetEnvInt("WEB_PORT", d.Web.Port),
			ExportEnabled: GetEnvBool("WEB_EXPORT_ENABLED", d.Web.ExportEnabled),
		},
		Log: LogSettings{
			Level:      GetEnv("LOG_LEVEL", d.Log.Level),
			File:       GetEnv("LOG_FILE", d.Log.File),
			MaxSizeMB:  GetEnvInt("LOG_MAX_SIZE_MB", d.Log.MaxSizeMB),
			MaxBackups: GetEnvInt("LOG_MAX_BACKUPS", d.Log.MaxBackups),
			MaxAgeDays: GetEnvInt("LOG_MAX_AGE_DAYS", d.Log.MaxAgeDays),
		},
		RulesFile: GetEnv("SCORE_RULES_FILE", ""),
		Counties:  GetEnvList("COUNTIES", d.Counties),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

var validate = validator.New()

// Validate checks every field constraint; failures wrap ErrConfiguration.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return eris.Wrapf(model.ErrConfiguration, "%s failed %s=%s (got %v)",
				fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
		}
		return eris.Wrap(model.ErrConfiguration, err.Error())
	}
	return nil
}

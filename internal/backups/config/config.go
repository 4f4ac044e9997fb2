// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package config holds the configuration of the backup daemon. The
// configuration is read from a YAML file of key/value pairs; every key is
// optional and missing keys take their default.
package config

import (
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/mgo/v3"
	"github.com/juju/schema"
	"github.com/klauspost/compress/flate"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	// BackupsRootKey is the directory holding staging directories and
	// archives.
	BackupsRootKey = "backups-root"

	// DatabaseNameKey is the database to back up. If unset it is taken
	// from the path of the mongo URI.
	DatabaseNameKey = "database-name"

	// MongoURIKey is the connection string of the database deployment.
	MongoURIKey = "mongo-uri"

	// MongoDialTimeoutKey bounds connecting to mongo for the record store.
	MongoDialTimeoutKey = "mongo-dial-timeout"

	// MongodumpPathKey is the export command.
	MongodumpPathKey = "mongodump-path"

	// MongodumpArgsKey holds extra arguments for the export command.
	MongodumpArgsKey = "mongodump-args"

	// StoreKey selects where backup records are kept, "sqlite" or "mongo".
	StoreKey = "store"

	// SQLitePathKey is the SQLite database file for the sqlite store.
	SQLitePathKey = "sqlite-path"

	// CompressionLevelKey is the deflate level of the archives.
	CompressionLevelKey = "compression-level"

	// ScheduleKey is a cron expression for scheduled backups. Empty
	// disables them.
	ScheduleKey = "schedule"

	// ReconcileIntervalKey is the interval between reconciliation passes.
	// Zero disables them.
	ReconcileIntervalKey = "reconcile-interval"

	// DumpTimeoutKey bounds a single export. Zero means no limit.
	DumpTimeoutKey = "dump-timeout"

	// ListenAddressKey is the address of the HTTP API.
	ListenAddressKey = "listen-address"

	// SerializeDumpsKey allows one export of a database at a time.
	SerializeDumpsKey = "serialize-dumps"

	// RemoveStagingOnFailureKey removes the staging directory of a failed
	// backup instead of leaving it for inspection.
	RemoveStagingOnFailureKey = "remove-staging-on-failure"

	// PruneOrphanArchivesKey makes reconciliation remove archives that
	// have no record.
	PruneOrphanArchivesKey = "prune-orphan-archives"

	// OrphanGracePeriodKey is how old an unrecorded archive must be before
	// it is pruned.
	OrphanGracePeriodKey = "orphan-grace-period"

	// ReconcileAfterCreateKey runs a reconciliation after every backup.
	ReconcileAfterCreateKey = "reconcile-after-create"

	// LoggingConfigKey is a loggo configuration string.
	LoggingConfigKey = "logging-config"

	// LogFileKey is a file the daemon also logs to, rotated when it
	// reaches LogFileMaxSizeKey megabytes. Empty disables it.
	LogFileKey        = "log-file"
	LogFileMaxSizeKey = "log-file-max-size"
)

const (
	// StoreSQLite keeps records in a local SQLite database.
	StoreSQLite = "sqlite"

	// StoreMongo keeps records in the backed up mongo deployment.
	StoreMongo = "mongo"
)

var fields = schema.Fields{
	BackupsRootKey:            schema.String(),
	DatabaseNameKey:           schema.String(),
	MongoURIKey:               schema.String(),
	MongoDialTimeoutKey:       schema.TimeDurationString(),
	MongodumpPathKey:          schema.String(),
	MongodumpArgsKey:          schema.List(schema.String()),
	StoreKey:                  schema.OneOf(schema.Const(StoreSQLite), schema.Const(StoreMongo)),
	SQLitePathKey:             schema.String(),
	CompressionLevelKey:       schema.ForceInt(),
	ScheduleKey:               schema.String(),
	ReconcileIntervalKey:      schema.TimeDurationString(),
	DumpTimeoutKey:            schema.TimeDurationString(),
	ListenAddressKey:          schema.String(),
	SerializeDumpsKey:         schema.Bool(),
	RemoveStagingOnFailureKey: schema.Bool(),
	PruneOrphanArchivesKey:    schema.Bool(),
	OrphanGracePeriodKey:      schema.TimeDurationString(),
	ReconcileAfterCreateKey:   schema.Bool(),
	LoggingConfigKey:          schema.String(),
	LogFileKey:                schema.String(),
	LogFileMaxSizeKey:         schema.ForceInt(),
}

var defaults = schema.Defaults{
	BackupsRootKey:            "/var/lib/backupd/backups",
	DatabaseNameKey:           "",
	MongoURIKey:               "mongodb://localhost:27017",
	MongoDialTimeoutKey:       "30s",
	MongodumpPathKey:          "mongodump",
	MongodumpArgsKey:          schema.Omit,
	StoreKey:                  StoreSQLite,
	SQLitePathKey:             "/var/lib/backupd/backups.db",
	CompressionLevelKey:       flate.BestCompression,
	ScheduleKey:               "",
	ReconcileIntervalKey:      "1h",
	DumpTimeoutKey:            "0s",
	ListenAddressKey:          "localhost:17071",
	SerializeDumpsKey:         false,
	RemoveStagingOnFailureKey: false,
	PruneOrphanArchivesKey:    false,
	OrphanGracePeriodKey:      "24h",
	ReconcileAfterCreateKey:   true,
	LoggingConfigKey:          "<root>=INFO",
	LogFileKey:                "",
	LogFileMaxSizeKey:         100,
}

var checker = schema.FieldMap(fields, defaults)

// Config holds the daemon configuration.
type Config struct {
	m map[string]interface{}
}

// New returns a configuration built from attrs with defaults filled in.
// Unknown attributes are rejected.
func New(attrs map[string]interface{}) (*Config, error) {
	for k := range attrs {
		if _, ok := fields[k]; !ok {
			return nil, errors.NotValidf("unknown config key %q", k)
		}
	}
	m, err := checker.Coerce(attrs, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	c := &Config{m: m.(map[string]interface{})}
	if c.asString(DatabaseNameKey) == "" {
		name, err := DatabaseNameFromURI(c.MongoURI())
		if err != nil {
			return nil, errors.Trace(err)
		}
		c.m[DatabaseNameKey] = name
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return c, nil
}

// Parse returns the configuration held in the YAML document data.
func Parse(data []byte) (*Config, error) {
	var attrs map[string]interface{}
	if err := yaml.Unmarshal(data, &attrs); err != nil {
		return nil, errors.Annotate(err, "parsing config")
	}
	return New(attrs)
}

// Read returns the configuration held in the YAML file at path.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "reading config %q", path)
	}
	cfg, err := Parse(data)
	return cfg, errors.Annotatef(err, "config %q", path)
}

// Apply returns a new configuration with attrs overriding the values of
// this one.
func (c *Config) Apply(attrs map[string]interface{}) (*Config, error) {
	merged := c.AllAttrs()
	for k, v := range attrs {
		merged[k] = v
	}
	// Let the database name follow a changed URI.
	if _, ok := attrs[MongoURIKey]; ok {
		if _, ok := attrs[DatabaseNameKey]; !ok {
			delete(merged, DatabaseNameKey)
		}
	}
	return New(merged)
}

// AllAttrs returns a copy of the configuration as a map, in a form that
// New accepts.
func (c *Config) AllAttrs() map[string]interface{} {
	attrs := make(map[string]interface{}, len(c.m))
	for k, v := range c.m {
		switch v := v.(type) {
		case time.Duration:
			attrs[k] = v.String()
		default:
			attrs[k] = v
		}
	}
	return attrs
}

// Validate ensures that the configuration can be used.
func (c *Config) Validate() error {
	if c.BackupsRoot() == "" {
		return errors.NotValidf("empty %s", BackupsRootKey)
	}
	if c.DatabaseName() == "" {
		return errors.NotValidf("empty %s", DatabaseNameKey)
	}
	if c.MongodumpPath() == "" {
		return errors.NotValidf("empty %s", MongodumpPathKey)
	}
	if c.Store() == StoreSQLite && c.SQLitePath() == "" {
		return errors.NotValidf("empty %s with %s store", SQLitePathKey, StoreSQLite)
	}
	if level := c.CompressionLevel(); level < flate.HuffmanOnly || level > flate.BestCompression {
		return errors.NotValidf("%s %d", CompressionLevelKey, level)
	}
	if spec := c.Schedule(); spec != "" {
		if _, err := ParseSchedule(spec); err != nil {
			return errors.Trace(err)
		}
	}
	for _, key := range []string{ReconcileIntervalKey, DumpTimeoutKey, OrphanGracePeriodKey, MongoDialTimeoutKey} {
		if c.asDuration(key) < 0 {
			return errors.NotValidf("negative %s", key)
		}
	}
	if c.LogFileMaxSize() <= 0 {
		return errors.NotValidf("%s %d", LogFileMaxSizeKey, c.LogFileMaxSize())
	}
	if _, err := loggo.ParseConfigString(c.LoggingConfig()); err != nil {
		return errors.NewNotValid(err, LoggingConfigKey)
	}
	return nil
}

// DatabaseNameFromURI returns the database named in the path of a mongo
// connection string.
func DatabaseNameFromURI(uri string) (string, error) {
	info, err := mgo.ParseURL(uri)
	if err != nil {
		return "", errors.NewNotValid(err, "mongo URI")
	}
	return info.Database, nil
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a five field cron expression, or a descriptor
// such as "@daily".
func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, errors.NewNotValid(err, "schedule "+spec)
	}
	return schedule, nil
}

// BackupsRoot returns the directory holding staging directories and
// archives.
func (c *Config) BackupsRoot() string {
	return c.asString(BackupsRootKey)
}

// DatabaseName returns the database to back up.
func (c *Config) DatabaseName() string {
	return c.asString(DatabaseNameKey)
}

// MongoURI returns the connection string of the database deployment.
func (c *Config) MongoURI() string {
	return c.asString(MongoURIKey)
}

// MongoDialTimeout bounds connecting to mongo for the record store.
func (c *Config) MongoDialTimeout() time.Duration {
	return c.asDuration(MongoDialTimeoutKey)
}

// MongodumpPath returns the export command.
func (c *Config) MongodumpPath() string {
	return c.asString(MongodumpPathKey)
}

// MongodumpArgs returns the extra arguments of the export command.
func (c *Config) MongodumpArgs() []string {
	raw, _ := c.m[MongodumpArgsKey].([]interface{})
	args := make([]string, 0, len(raw))
	for _, arg := range raw {
		args = append(args, arg.(string))
	}
	return args
}

// Store returns where backup records are kept.
func (c *Config) Store() string {
	return c.asString(StoreKey)
}

// SQLitePath returns the SQLite database file of the sqlite store.
func (c *Config) SQLitePath() string {
	return c.asString(SQLitePathKey)
}

// CompressionLevel returns the deflate level of the archives.
func (c *Config) CompressionLevel() int {
	level, _ := c.m[CompressionLevelKey].(int)
	return level
}

// Schedule returns the cron expression of scheduled backups.
func (c *Config) Schedule() string {
	return c.asString(ScheduleKey)
}

// ReconcileInterval returns the interval between reconciliation passes.
func (c *Config) ReconcileInterval() time.Duration {
	return c.asDuration(ReconcileIntervalKey)
}

// DumpTimeout returns the limit of a single export.
func (c *Config) DumpTimeout() time.Duration {
	return c.asDuration(DumpTimeoutKey)
}

// ListenAddress returns the address of the HTTP API.
func (c *Config) ListenAddress() string {
	return c.asString(ListenAddressKey)
}

// SerializeDumps reports whether exports of a database are serialized.
func (c *Config) SerializeDumps() bool {
	return c.asBool(SerializeDumpsKey)
}

// RemoveStagingOnFailure reports whether the staging directory of a
// failed backup is removed.
func (c *Config) RemoveStagingOnFailure() bool {
	return c.asBool(RemoveStagingOnFailureKey)
}

// PruneOrphanArchives reports whether reconciliation removes unrecorded
// archives.
func (c *Config) PruneOrphanArchives() bool {
	return c.asBool(PruneOrphanArchivesKey)
}

// OrphanGracePeriod returns how old an unrecorded archive must be before
// it is pruned.
func (c *Config) OrphanGracePeriod() time.Duration {
	return c.asDuration(OrphanGracePeriodKey)
}

// ReconcileAfterCreate reports whether a reconciliation follows every
// backup.
func (c *Config) ReconcileAfterCreate() bool {
	return c.asBool(ReconcileAfterCreateKey)
}

// LoggingConfig returns the loggo configuration string.
func (c *Config) LoggingConfig() string {
	return c.asString(LoggingConfigKey)
}

// LogFile returns the file the daemon logs to, if any.
func (c *Config) LogFile() string {
	return c.asString(LogFileKey)
}

// LogFileMaxSize returns the size in megabytes at which the log file is
// rotated.
func (c *Config) LogFileMaxSize() int {
	size, _ := c.m[LogFileMaxSizeKey].(int)
	return size
}

func (c *Config) asString(key string) string {
	s, _ := c.m[key].(string)
	return s
}

func (c *Config) asBool(key string) bool {
	b, _ := c.m[key].(bool)
	return b
}

// asDuration returns a duration attribute. The schema coerces durations
// into their string form.
func (c *Config) asDuration(key string) time.Duration {
	switch v := c.m[key].(type) {
	case time.Duration:
		return v
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0
		}
		return d
	}
	return 0
}

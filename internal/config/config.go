// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the YAML configuration of the GEM tools.
package config // import "github.com/go-lpc/gem/internal/config"

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-lpc/gem/amc13"
	"github.com/go-lpc/gem/amc13/rawio"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the GEM tools.
type Config struct {
	Format         string `yaml:"format"`           // raw or minidaq
	VFAT           string `yaml:"vfat"`             // v2 or v3
	PayloadOffset  int    `yaml:"minidaq-offset"`   // offset of the frame in MiniDAQ blobs
	CheckBlockSize bool   `yaml:"check-block-size"` // cross-check AMC block sizes
	Verbose        bool   `yaml:"verbose"`
	Workers        int    `yaml:"workers"` // number of files processed concurrently
	Log            Log    `yaml:"log"`
}

// Log configures a size-rotated log file.
// No log file is written when File is empty.
type Log struct {
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max-size"` // megabytes
	MaxBackups int    `yaml:"max-backups"`
	MaxAge     int    `yaml:"max-age"` // days
	Compress   bool   `yaml:"compress"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Format:        rawio.Raw.String(),
		VFAT:          amc13.VFAT3.String(),
		PayloadOffset: rawio.DefaultPayloadOffset,
		Workers:       runtime.NumCPU(),
		Log: Log{
			MaxSize:    25,
			MaxBackups: 5,
			MaxAge:     7,
		},
	}
}

// Load reads the named YAML file on top of the default configuration.
// Relative log file names are resolved against the directory of fname.
func Load(fname string) (Config, error) {
	cfg := Default()

	f, err := os.Open(fname)
	if err != nil {
		return cfg, fmt.Errorf("config: could not open %q: %w", fname, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: could not decode %q: %w", fname, err)
	}

	if cfg.Log.File != "" && !filepath.IsAbs(cfg.Log.File) {
		cfg.Log.File = filepath.Join(filepath.Dir(fname), cfg.Log.File)
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, fmt.Errorf("config: invalid configuration %q: %w", fname, err)
	}
	return cfg, nil
}

// Validate checks the configuration and fills unset sizes with defaults.
func (cfg *Config) Validate() error {
	if _, err := rawio.ParseFormat(cfg.Format); err != nil {
		return err
	}
	if _, err := amc13.ParseVFATFormat(cfg.VFAT); err != nil {
		return err
	}
	if cfg.PayloadOffset < 0 {
		return fmt.Errorf("config: invalid MiniDAQ payload offset %d", cfg.PayloadOffset)
	}

	def := Default()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Log.MaxSize <= 0 {
		cfg.Log.MaxSize = def.Log.MaxSize
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = def.Log.MaxBackups
	}
	if cfg.Log.MaxAge <= 0 {
		cfg.Log.MaxAge = def.Log.MaxAge
	}
	return nil
}

// FileFormat returns the configured input file format.
func (cfg Config) FileFormat() (rawio.Format, error) {
	return rawio.ParseFormat(cfg.Format)
}

// DecoderOptions returns the frame decoder options of the configuration.
func (cfg Config) DecoderOptions(msg *log.Logger) ([]amc13.Option, error) {
	vfat, err := amc13.ParseVFATFormat(cfg.VFAT)
	if err != nil {
		return nil, err
	}
	opts := []amc13.Option{
		amc13.WithVFATFormat(vfat),
		amc13.WithVerbose(cfg.Verbose),
		amc13.WithBlockSizeCheck(cfg.CheckBlockSize),
	}
	if msg != nil {
		opts = append(opts, amc13.WithLogger(msg))
	}
	return opts, nil
}

// ReaderOptions returns the frame reader options of the configuration.
func (cfg Config) ReaderOptions(msg *log.Logger) []rawio.Option {
	opts := []rawio.Option{
		rawio.WithPayloadOffset(cfg.PayloadOffset),
		rawio.WithVerbose(cfg.Verbose),
	}
	if msg != nil {
		opts = append(opts, rawio.WithLogger(msg))
	}
	return opts
}

// Writer returns the destination of the tools' logs: w, duplicated
// into the rotated log file when one is configured.
// The returned closer releases the log file.
func (cfg Config) Writer(w io.Writer) (io.Writer, io.Closer) {
	if cfg.Log.File == "" {
		return w, nopCloser{}
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}
	return io.MultiWriter(w, rotator), rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

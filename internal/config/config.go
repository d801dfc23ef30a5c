/*
 * Copyright (c) 2026. Anton Starikov -- All Rights Reserved
 *
 * This file is part of MZVC project.
 *
 * MZVC is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package config

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/antst/mzvc/internal/logger"

	"github.com/pborman/getopt/v2"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultMQTTURL      = "tcp://127.0.0.1:1883"
	defaultControlTopic = "mzvc/control"
	defaultStateTopic   = "mzvc/state"
	defaultDBFile       = "~/.mzvc.db"
	defaultConfigFile   = "config.yaml"
	DefaultAverageType  = "mean"
)

type MQTTConfig struct {
	URL          string `yaml:"url"`
	ControlTopic string `yaml:"control_topic"`
	StateTopic   string `yaml:"state_topic"`
}

func NewMQTTConfig() *MQTTConfig {
	return &MQTTConfig{
		URL:          defaultMQTTURL,
		ControlTopic: defaultControlTopic,
		StateTopic:   defaultStateTopic,
	}
}

func (c *MQTTConfig) FillDefaults() {
	if c.URL == "" {
		c.URL = defaultMQTTURL
	}
	if c.ControlTopic == "" {
		c.ControlTopic = defaultControlTopic
	}
	if c.StateTopic == "" {
		c.StateTopic = defaultStateTopic
	}
}

type Config struct {
	LogLevel   zapcore.Level          `yaml:"log_level"`
	MQTTConfig *MQTTConfig            `yaml:"mqtt"`
	DBFile     string                 `yaml:"db_file"`
	Control    *ControlConfig         `yaml:"control"`
	Main       *MainUnitConfig        `yaml:"main"`
	Zones      map[string]*ZoneConfig `yaml:"zones"`

	path string
}

// Path reports the file the configuration was loaded from; empty for
// a purely in-memory config.
func (cfg *Config) Path() string { return cfg.path }

func defConfig() *Config {
	return &Config{
		Zones:      make(map[string]*ZoneConfig),
		MQTTConfig: NewMQTTConfig(),
		Control:    NewControlConfig(),
		Main:       NewMainUnitConfig(),
		DBFile:     defaultDBFile,
	}
}

func prettyPrint(cfg *Config) {
	d, err := yaml.Marshal(cfg)
	if err != nil {
		logger.L().Error("Failed to marshal config for pretty print", err)
		return
	}
	logger.L().Debugf("--- Config ---\n%s\n\n", string(d))
}

func (cfg *Config) FillDefaults() {
	cfg.MQTTConfig.FillDefaults()
	cfg.Control.FillDefaults()
	cfg.Main.FillDefaults()
	for _, z := range cfg.Zones {
		z.FillDefaults()
	}
}

// Get parses command line flags, reads the config file and returns a
// validated configuration. Invalid configuration is fatal: the control core
// assumes every invariant holds before the first cycle.
func Get() *Config {
	cfg := defConfig()
	logLevel := getopt.StringLong("log-level", 'l', "", "log levels: debug, info, warn, error, dpanic, panic, fatal")
	configFile := getopt.StringLong("config", 'c', defaultConfigFile, "config file pathname")

	getopt.Parse()

	if err := readFile(cfg, *configFile); err != nil {
		log.Panicf("GetConfig: %v", err)
	}
	cfg.path = *configFile

	logger.L().Infof("Using config file `%v`", *configFile)
	dbFile := getopt.StringLong("db", 'd', cfg.DBFile, "DB file pathname")
	if *dbFile != "" {
		cfg.DBFile = *dbFile
	}
	logger.L().Infof("Using DB file `%v`", cfg.DBFile)

	cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		log.Panicf("GetConfig: %v", err)
	}

	if *logLevel != "" {
		if err := cfg.LogLevel.Set(*logLevel); err != nil {
			logger.L().Errorf("Wrong log level `%v`: %v", *logLevel, err)
		}
	}
	logger.SetLogLevel(cfg.LogLevel)

	prettyPrint(cfg)

	return cfg
}

// Load reads, defaults and validates a config file without touching the
// command line. Used by the file watcher and by tests.
func Load(configFileName string) (*Config, error) {
	cfg := defConfig()
	if err := readFile(cfg, configFileName); err != nil {
		return nil, err
	}
	cfg.path = configFileName
	cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}

func readFile(cfg *Config, configFileName string) error {
	if !fileExists(configFileName) {
		return nil
	}

	f, err := os.Open(configFileName)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	return nil
}

func GetPTR[T any](val T) *T {
	return &val
}

package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

//*******************************************
// configuration
//*******************************************

type Config struct {
	Graph struct {
		// path to the osm.pbf extract
		Pbf string `yaml:"pbf"`
		// optional file the contraction hierarchy is cached in
		ChFile string `yaml:"ch_file"`
	} `yaml:"graph"`
	Build struct {
		// "inertial" or "degree"
		Ordering string `yaml:"ordering"`
		// customization threads, 0 picks the cpu count
		ThreadCount int `yaml:"thread_count"`
		// drop chordal arcs that can never become finite
		FilterAlwaysInf bool `yaml:"filter_always_inf"`
		// witness search pop limit of the ch build, 0 picks a default
		MaxPopCount int `yaml:"max_pop_count"`
	} `yaml:"build"`
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

func ReadConfig(file string) (Config, error) {
	config := Config{}
	data, err := os.ReadFile(file)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	if config.Server.Port == 0 {
		config.Server.Port = 5002
	}
	if config.Build.Ordering == "" {
		config.Build.Ordering = "inertial"
	}
	return config, nil
}

// Package config loads typed configuration structs from environment variables.
//
// Structs declare their variables with `env` and `envDefault` tags understood by
// github.com/caarlos0/env. A local .env file is read once, before the first
// parse, when present.
//
//	type Config struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// Load caches the parsed value per struct type, so every package that asks for
// the same Config type observes the same values for the life of the process.
package config

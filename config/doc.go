// Package config loads SDK settings for embedding applications.
//
// It uses Viper to read a config.yml plus a godotenv-loaded .env file, with
// environment variables overriding file values via underscore-separated
// paths (e.g. CLIENT_BASE_URL -> client.base_url).
//
//	var s config.Settings
//	err := config.Load("myapp", &s)
package config

// Package config reads inboxshelf settings from the environment.
//
// A .env file in the working directory is loaded first when present;
// variables already set in the process environment take precedence over
// it. Command-line flags override both and are applied by the cmd package.
package config

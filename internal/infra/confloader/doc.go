// Package confloader provides configuration loading mechanism.
//
// This package implements a configuration loader on top of koanf.
//
// Features:
//
//   - Sources: defaults held in the target struct, a YAML file, a .env
//     file and SHOPMATE_ environment variables
//   - Type Safety: Unmarshaling into typed structs via koanf tags
//   - Watch Support: callbacks when the config file is rewritten
//
// Priority (highest to lowest):
//
//  1. Environment variables (including those from .env)
//  2. Configuration file
//  3. Default values
package confloader

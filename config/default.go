package config

import _ "embed"

// DefaultConfigYAML 内置默认配置，随二进制一起发布
//
//go:embed config.default.yaml
var DefaultConfigYAML []byte

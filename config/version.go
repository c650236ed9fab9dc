package config

// Version is stamped at build time via -ldflags "-X ...config.Version=v1.2.3".
var Version = "dev"

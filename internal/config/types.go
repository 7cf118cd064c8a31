package config

// ServerConfig controls the listening socket.
type ServerConfig struct {
	Host string `yaml:"host" validate:"omitempty,hostname|ip"`
	Port int    `yaml:"port" validate:"gte=0,lte=65535"`
}

// UpstreamConfig points at the embedding service behind the proxy mount.
type UpstreamConfig struct {
	URL    string `yaml:"url" validate:"required,url"`
	Prefix string `yaml:"prefix" validate:"required,startswith=/"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// Config represents the wordcloud.yaml file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Log      LogConfig      `yaml:"log"`
}

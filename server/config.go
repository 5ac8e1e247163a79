package server

import "time"

type Config struct {
	Addr            string        `default:":8080"`
	AllowedOrigins  []string      `split_words:"true" default:"*"`
	ReadTimeout     time.Duration `split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `split_words:"true" default:"120s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"20s"`
	// RatePerMinute and RateBurst bound /api calls per user. Zero disables limiting.
	RatePerMinute int `split_words:"true" default:"30"`
	RateBurst     int `split_words:"true" default:"10"`
	// PublicURL is the base URL QStash signs deliveries for.
	PublicURL string `split_words:"true"`
	Debug     bool
}

type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	Issuer    string
}

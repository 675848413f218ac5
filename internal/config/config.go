package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	Database    Database

	Paymob Paymob `envPrefix:"PAYMOB_"`
}

type Paymob struct {
	// BaseURL is the public origin of this service, used to build the
	// webhook and redirect URLs handed to the processor.
	BaseURL string `env:"BASE_URL"`
	// SuccessURL is where the payer lands after a verified redirect.
	SuccessURL string `env:"SUCCESS_URL" envDefault:"/"`
}

type Database struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DB_DSN" envDefault:"paymob.db"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

package models

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

type RabbitMQConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

type HTTPConfig struct {
	RidePort    string
	BookingPort string
}

type ServicesConfig struct {
	RideService    string // base URL the booking ledger calls
	RequestTimeout string // per-call timeout, e.g. "3s"
}

type Config struct {
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	HTTP     HTTPConfig
	Services ServicesConfig
}

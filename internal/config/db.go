package config

// DB holds the database configuration settings.
type DB struct {
	GormEngine string `validate:"omitempty,oneof=sqlite mysql postgres"` // sqlite (default), mysql or postgres
	Extras     string // dsn options, e.g. "sslmode=disable"
	Host       string
	Port       int `validate:"gte=0,lte=65535"`
	User       string
	Password   string
	Name       string // database name, the file path for sqlite
}

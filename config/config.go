package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr           string        `envconfig:"ADDR" default:":5000"`
	PostgresURL    string        `envconfig:"POSTGRES_URL" required:"true"`
	JWTKey         string        `envconfig:"JWT_KEY" required:"true"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" required:"true"`
	TokenMaxAge    time.Duration `envconfig:"TOKEN_MAX_AGE" default:"168h"`
	Debug          bool          `envconfig:"DEBUG" default:"false"`

	RoomCapacity  int    `envconfig:"ROOM_CAPACITY" default:"4"`
	MaxRooms      int    `envconfig:"MAX_ROOMS" default:"256"`
	MaxConns      int    `envconfig:"MAX_CONNECTIONS" default:"2048"`
	QuestionCount int    `envconfig:"QUESTION_COUNT" default:"7"`
	Difficulty    string `envconfig:"QUESTION_DIFFICULTY" default:"easy"`

	TriviaURL     string        `envconfig:"TRIVIA_URL" default:"https://opentdb.com/api.php"`
	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`
	FetchAttempts int           `envconfig:"FETCH_ATTEMPTS" default:"3"`
	// FetchBudget bounds one whole question fetch including retries, so it
	// must exceed FetchAttempts times FetchTimeout plus backoff.
	FetchBudget time.Duration `envconfig:"FETCH_BUDGET" default:"50s"`
	SendTimeout   time.Duration `envconfig:"SEND_TIMEOUT" default:"5s"`
	PingInterval  time.Duration `envconfig:"PING_INTERVAL" default:"30s"`
}

// Load reads the configuration from the environment, after loading an
// optional .env file from the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

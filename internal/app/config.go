package app

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	PrivateKey string `env:"PRIVATE_KEY,required"`
	EthRPCURL  string `env:"ETH_RPC_URL,required"`

	HTTPAddr        string `env:"HTTP_ADDR"`
	TreasuryAddress string `env:"TREASURY_ADDRESS"`
	PostgresURL     string `env:"POSTGRES_URL"`

	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`

	EthUSDRate    string  `env:"ETH_USD_RATE"`
	Confirmations uint64  `env:"CONFIRMATIONS"`
	SubmitRPS     float64 `env:"SUBMIT_RPS"`
	SubmitBurst   int     `env:"SUBMIT_BURST"`
	NotifyBuffer  int     `env:"NOTIFY_BUFFER"`
}

func LoadConfig() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Warning: .env file not found, relying on environment variables")
	}

	config := Config{
		HTTPAddr:      ":8080",
		EthUSDRate:    "3000",
		Confirmations: 1,
		SubmitRPS:     1,
		SubmitBurst:   3,
		NotifyBuffer:  64,
	}

	if err := env.Parse(&config); err != nil {
		return Config{}, err
	}

	return config, nil
}

package services

import "treasury/internal/logger"

func init() {
	logger.Init("test")
}

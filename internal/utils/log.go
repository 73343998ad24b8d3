// Package utils
package utils

import (
	"io"
	"log"
	"os"
	"sync"
)

// LogFile is where GetLogger appends.
const LogFile = "strategy-lab.log"

var (
	logger *log.Logger
	once   sync.Once
)

// GetLogger returns the process-wide run logger. Output goes to LogFile and
// stderr.
func GetLogger() *log.Logger {
	once.Do(func() {
		file, err := os.OpenFile(LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatal(err)
		}
		logger = log.New(io.MultiWriter(file, os.Stderr), "Strategy Lab: ", log.LstdFlags)
	})
	return logger
}

// Discard returns a logger that drops everything. Tests hand it to
// components that require a logger.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

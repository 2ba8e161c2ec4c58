package repository

import (
	"io"
	"os"
	"testing"

	"github.com/okian/verdict/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

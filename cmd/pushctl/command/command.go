// Package command implements the pushctl sub commands.
package command

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/DrmagicE/pushstore/config"
	"github.com/DrmagicE/pushstore/store"
)

var (
	ConfigFile string

	bold    = color.New(color.Bold)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
	warning = color.New(color.FgYellow)
)

// loadConfig reads ConfigFile, falling back to the default configuration when it does not exist.
func loadConfig(w io.Writer) (config.Config, error) {
	c, err := config.ParseConfig(ConfigFile)
	if os.IsNotExist(err) {
		warning.Fprintf(w, "config file %s not exist, use default configuration\n", ConfigFile)
		return config.DefaultConfig(), nil
	}
	return c, err
}

// openStore opens a store from the configuration file. The caller closes it.
func openStore(ctx context.Context, w io.Writer, opts ...store.Options) (*store.Store, *zap.Logger, error) {
	c, err := loadConfig(w)
	if err != nil {
		return nil, nil, err
	}
	l, err := c.GetLogger(c.Log)
	if err != nil {
		return nil, nil, err
	}
	s := store.New(append([]store.Options{store.WithConfig(c), store.WithLogger(l)}, opts...)...)
	if err = s.Open(ctx); err != nil {
		return nil, nil, err
	}
	return s, l, nil
}

func printOK(w io.Writer, format string, a ...interface{}) {
	success.Fprint(w, "OK ")
	fmt.Fprintf(w, format+"\n", a...)
}

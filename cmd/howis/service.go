package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/jskherman/howis/pkg/app"
)

// program adapts the application lifecycle to the OS service manager.
type program struct {
	params app.RunParams
	cancel context.CancelFunc
	done   chan error
	logger service.Logger
}

func (p *program) Start(service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		err := app.RunContext(ctx, p.params)
		if err != nil && p.logger != nil {
			_ = p.logger.Error(err)
		}
		p.done <- err
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	err := <-p.done
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newService(cmd *cobra.Command) (service.Service, *program, error) {
	params := runParams(cmd)
	args := []string{"service", "run"}
	if params.ConfigPath != "" {
		abs, err := filepath.Abs(params.ConfigPath)
		if err != nil {
			return nil, nil, err
		}
		params.ConfigPath = abs
		args = append(args, "--config", abs)
	}

	prg := &program{params: params}
	svc, err := service.New(prg, &service.Config{
		Name:        "howis",
		DisplayName: "howis dashboard",
		Description: "Personal quantified-self dashboard and job runner.",
		Arguments:   args,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating service: %w", err)
	}
	return svc, prg, nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage howis as an OS service",
	}

	for _, action := range service.ControlAction {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the howis service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, _, err := newService(cmd)
				if err != nil {
					return err
				}
				if err := service.Control(svc, action); err != nil {
					return fmt.Errorf("service %s: %w", action, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Service %s: ok\n", action)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, prg, err := newService(cmd)
			if err != nil {
				return err
			}
			if prg.logger, err = svc.Logger(nil); err != nil {
				return err
			}
			return svc.Run()
		},
	})
	return cmd
}

// SPDX-License-Identifier: AGPL-3.0-or-later
// GroupLoop - Run a GroupLoop sensor network in a single binary
// Copyright (C) 2024-2026 Bas Pijls
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/bpijls/grouploop>

package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bpijls/grouploop/internal/emulator"
	"github.com/lmittmann/tint"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

func newEmulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emulate",
		Short: "Run a fleet of emulated sensor devices against a hub",
		RunE:  runEmulate,
	}
	cmd.Flags().String("url", "ws://localhost:5003/ws", "hub WebSocket endpoint")
	cmd.Flags().Int("devices", 1, "number of emulated devices")
	cmd.Flags().Duration("interval", time.Second, "default period between sensor frames")
	cmd.Flags().String("control-url", "", "device-control UI to open in the browser")
	return cmd
}

func runEmulate(cmd *cobra.Command, _ []string) error {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo})))

	url, _ := cmd.Flags().GetString("url")
	devices, _ := cmd.Flags().GetInt("devices")
	interval, _ := cmd.Flags().GetDuration("interval")
	controlURL, _ := cmd.Flags().GetString("control-url")

	e, err := emulator.New(emulator.Options{
		URL:      url,
		Devices:  devices,
		Interval: interval,
	})
	if err != nil {
		return err
	}

	if controlURL != "" {
		if err := browser.OpenURL(controlURL); err != nil {
			slog.Error("Failed to open browser, please open the control UI manually", "url", controlURL, "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer stop()

	return e.Run(ctx)
}

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

// Package emulator runs a fleet of fake sensor devices against a hub. Each
// device identifies itself, answers re-identification prompts, and emits
// sensor frames on a schedule that R frames from clients can retune.
package emulator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bpijls/grouploop/client"
	"github.com/go-co-op/gocron/v2"
)

// Options configures the emulated fleet.
type Options struct {
	// URL is the hub WebSocket endpoint.
	URL string
	// Devices is the number of fake devices to connect.
	Devices int
	// Interval is the default period between sensor frames.
	Interval time.Duration
}

// Emulator owns the fleet and its shared scheduler.
type Emulator struct {
	opts      Options
	scheduler gocron.Scheduler
	devices   []*device
}

// New creates an Emulator. Connections are made in Run.
func New(opts Options) (*Emulator, error) {
	if opts.Devices <= 0 {
		opts.Devices = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Emulator{
		opts:      opts,
		scheduler: scheduler,
	}, nil
}

// Run connects the fleet and blocks until ctx is cancelled.
func (e *Emulator) Run(ctx context.Context) error {
	for i := 0; i < e.opts.Devices; i++ {
		d, err := e.startDevice(ctx)
		if err != nil {
			e.stop()
			return err
		}
		e.devices = append(e.devices, d)
	}
	e.scheduler.Start()
	slog.Info("Emulator running", "devices", len(e.devices), "url", e.opts.URL)

	<-ctx.Done()
	e.stop()
	return nil
}

func (e *Emulator) stop() {
	if err := e.scheduler.Shutdown(); err != nil {
		slog.Error("Failed to stop scheduler", "error", err)
	}
	for _, d := range e.devices {
		_ = d.c.Close()
	}
}

func (e *Emulator) startDevice(ctx context.Context) (*device, error) {
	id := fmt.Sprintf("%04X", rand.IntN(0x10000))
	c, err := client.Dial(ctx, e.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect device %s: %w", id, err)
	}

	d := &device{
		id:        id,
		c:         c,
		scheduler: e.scheduler,
		interval:  e.opts.Interval,
	}
	if err := c.Identify(id); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to identify device %s: %w", id, err)
	}
	if err := d.startStreaming(d.interval); err != nil {
		_ = c.Close()
		return nil, err
	}
	go d.handleFrames()

	slog.Info("Emulated device connected", "device", id)
	return d, nil
}

// device is one emulated sensor endpoint.
type device struct {
	id        string
	c         *client.Client
	scheduler gocron.Scheduler

	mu       sync.Mutex
	job      gocron.Job
	interval time.Duration
}

// emit sends one sensor frame with freshly drawn random accelerometer and
// RSSI values.
func (d *device) emit() {
	aX := byte(rand.IntN(256))
	aY := byte(rand.IntN(256))
	aZ := byte(rand.IntN(256))
	rssi := rand.Uint32()
	if err := d.c.Sensor(d.id, aX, aY, aZ, rssi); err != nil {
		slog.Debug("Emulated device send failed", "device", d.id, "error", err)
	}
}

func (d *device) startStreaming(interval time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	job, err := d.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(d.emit),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule device %s: %w", d.id, err)
	}
	d.job = job
	d.interval = interval
	return nil
}

// retune adjusts the streaming rate. freq is frames per second; 0 stops
// the stream until the next non-zero request.
func (d *device) retune(freq uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if freq == 0 {
		if d.job != nil {
			if err := d.scheduler.RemoveJob(d.job.ID()); err != nil {
				slog.Debug("Failed to remove job", "device", d.id, "error", err)
			}
			d.job = nil
		}
		return
	}

	interval := time.Second / time.Duration(freq)
	d.interval = interval
	if d.job == nil {
		job, err := d.scheduler.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(d.emit),
		)
		if err != nil {
			slog.Debug("Failed to schedule job", "device", d.id, "error", err)
			return
		}
		d.job = job
		return
	}
	job, err := d.scheduler.Update(
		d.job.ID(),
		gocron.DurationJob(interval),
		gocron.NewTask(d.emit),
	)
	if err != nil {
		slog.Debug("Failed to retune job", "device", d.id, "error", err)
		return
	}
	d.job = job
}

// handleFrames reacts to hub traffic: identification prompts, sample
// requests, and configuration/message frames.
func (d *device) handleFrames() {
	for frame := range d.c.Frames() {
		switch {
		case frame == "I":
			if err := d.c.Identify(d.id); err != nil {
				return
			}
		case strings.HasPrefix(frame, "R"+d.id):
			switch len(frame) {
			case 5:
				d.emit()
			case 7:
				freq, err := strconv.ParseUint(frame[5:], 16, 8)
				if err != nil {
					continue
				}
				d.retune(freq)
			}
		case strings.HasPrefix(frame, "C"+d.id), strings.HasPrefix(frame, "M"+d.id):
			slog.Info("Emulated device received command", "device", d.id, "frame", frame)
		default:
			// frames for other devices or unknown traffic, ignore
		}
	}
}

// Package pwm drives a vibration motor through the Linux sysfs PWM
// interface (/sys/class/pwm). Values written to the sink are duty cycle
// percentages; 0 is off.
package pwm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hapticlabs/hapticsync/internal/playback"
)

// Config selects the PWM channel and carrier frequency.
type Config struct {
	// Chip is the pwmchip index under /sys/class/pwm.
	Chip int
	// Channel is the PWM channel on that chip.
	Channel int
	// FreqHz is the carrier frequency. Vibration motors respond to the duty
	// cycle, not the carrier, so anything well above the motor's mechanical
	// response works; 200Hz is the usual choice.
	FreqHz int
	// BasePath overrides /sys/class/pwm, for tests.
	BasePath string
}

// Sink writes duty cycles to one sysfs PWM channel.
type Sink struct {
	dir      string
	periodNs int64
	logger   *zap.Logger
}

// Open exports the channel, programs the carrier period, and enables
// output. The channel starts at zero duty.
func Open(cfg Config, logger *zap.Logger) (*Sink, error) {
	if cfg.FreqHz <= 0 {
		return nil, fmt.Errorf("pwm frequency %d is not positive", cfg.FreqHz)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := cfg.BasePath
	if base == "" {
		base = "/sys/class/pwm"
	}
	chipDir := filepath.Join(base, fmt.Sprintf("pwmchip%d", cfg.Chip))
	dir := filepath.Join(chipDir, fmt.Sprintf("pwm%d", cfg.Channel))

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := writeSysfs(filepath.Join(chipDir, "export"), strconv.Itoa(cfg.Channel)); err != nil {
			return nil, fmt.Errorf("export pwm%d: %w", cfg.Channel, err)
		}
	}

	s := &Sink{
		dir:      dir,
		periodNs: int64(1e9) / int64(cfg.FreqHz),
		logger:   logger,
	}
	// duty_cycle must stay below period, so zero it before reprogramming.
	if err := writeSysfs(filepath.Join(dir, "duty_cycle"), "0"); err != nil {
		return nil, fmt.Errorf("reset duty cycle: %w", err)
	}
	if err := writeSysfs(filepath.Join(dir, "period"), strconv.FormatInt(s.periodNs, 10)); err != nil {
		return nil, fmt.Errorf("set period: %w", err)
	}
	if err := writeSysfs(filepath.Join(dir, "enable"), "1"); err != nil {
		return nil, fmt.Errorf("enable pwm: %w", err)
	}

	logger.Info("pwm channel opened",
		zap.Int("chip", cfg.Chip),
		zap.Int("channel", cfg.Channel),
		zap.Int("freq_hz", cfg.FreqHz),
	)
	return s, nil
}

// Write sets the duty cycle. Values are clamped to [0, 100].
func (s *Sink) Write(v playback.Value) error {
	duty := float64(v)
	if duty < 0 {
		duty = 0
	}
	if duty > 100 {
		duty = 100
	}
	ns := int64(duty / 100 * float64(s.periodNs))
	if err := writeSysfs(filepath.Join(s.dir, "duty_cycle"), strconv.FormatInt(ns, 10)); err != nil {
		return fmt.Errorf("set duty cycle: %w", err)
	}
	return nil
}

// Neutral is the resting duty: motor off.
func (s *Sink) Neutral() playback.Value { return 0 }

// Close zeroes the duty cycle and disables output. The channel stays
// exported so a later Open reuses it.
func (s *Sink) Close() error {
	var errs []error
	if err := writeSysfs(filepath.Join(s.dir, "duty_cycle"), "0"); err != nil {
		errs = append(errs, fmt.Errorf("reset duty cycle: %w", err))
	}
	if err := writeSysfs(filepath.Join(s.dir, "enable"), "0"); err != nil {
		errs = append(errs, fmt.Errorf("disable pwm: %w", err))
	}
	return errors.Join(errs...)
}

func writeSysfs(path, value string) error {
	// O_TRUNC so a short value never leaves tail bytes of a longer
	// previous one behind.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(strings.TrimSpace(value))
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

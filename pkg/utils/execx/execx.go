// Package execx 封装外部命令执行，便于在测试中替换。
package execx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner 执行外部命令，返回的错误包含命令的合并输出。
type Runner func(ctx context.Context, name string, args ...string) error

// Run 是默认的 Runner 实现。
func Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// OrDefault 返回 r，r 为 nil 时返回 Run。
func OrDefault(r Runner) Runner {
	if r == nil {
		return Run
	}
	return r
}

// LookPath reports whether the binary can be found.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

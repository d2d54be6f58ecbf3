// xtreectl 是 xtree 配置文件的命令行工具。
//
// 用法:
//
//	xtreectl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-f, --file     配置文件路径（必需）
//	-c, --create   文件不存在时创建
//	--debug        向 stderr 输出调试日志
//
// 命令:
//
//	get <path>                       读取节点值（不会创建节点）
//	set <path> <value>               设置节点值（路径不存在时创建）
//	ls [path]                        列出子节点
//	rm <path>                        删除节点及其子树
//	clean                            删除所有空节点
//	validate                         校验节点名
//	export                           以 YAML/JSON 输出整棵树
//	import <file> [path]             将 YAML/JSON 文件导入到 path 下
//	watch [path]                     监视文件变更并输出最新值
//
// 修改类命令成功后写回文件，失败时不修改文件。
//
// 退出码:
//
//	0: 命令执行成功
//	1: 命令执行失败（节点不存在、校验失败、读写错误等）
//	2: 参数错误（缺少参数、路径语法错误、未知命令等）
//
// 示例:
//
//	xtreectl -f app.xml -c set screen/height 1080
//	xtreectl -f app.xml get servers/host#2
//	xtreectl -f app.xml set servers/host## c.example.com
//	xtreectl -f app.xml export --format json
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// createApp 创建 CLI 应用。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xtreectl",
		Usage:     "xtree 配置文件命令行工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "配置文件路径",
			},
			&cli.BoolFlag{
				Name:    "create",
				Aliases: []string{"c"},
				Usage:   "文件不存在时创建",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "向 stderr 输出调试日志",
			},
		},
		Commands: createCommands(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Present() {
				return &usageError{msg: fmt.Sprintf("未知命令 %q", cmd.Args().First())}
			}
			return cli.ShowAppHelp(cmd)
		},
		OnUsageError: onUsageError,
		// 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码。
		ExitErrHandler: func(_ context.Context, cmd *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(cmd.Root().ErrWriter, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)

	if err := app.Run(ctx, args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}

	return 0
}

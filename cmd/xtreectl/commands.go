package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xtree/pkg/config/xtree"
)

// exitError 表示需要非零退出码但已完成输出的场景。
// 命令内部已完成所有输出，main 只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// usageError 表示参数错误，对应退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// onUsageError 将 urfave/cli 的 flag 解析错误统一转为 usageError。
func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return &usageError{msg: err.Error()}
}

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createGetCommand(),
		createSetCommand(),
		createListCommand(),
		createRemoveCommand(),
		createCleanCommand(),
		createValidateCommand(),
		createExportCommand(),
		createImportCommand(),
		createWatchCommand(),
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "format",
		Usage: "数据格式 (yaml/json)",
		Value: string(xtree.FormatYAML),
	}
}

func createGetCommand() *cli.Command {
	return &cli.Command{
		Name:         "get",
		Usage:        "读取节点值（不会创建节点）",
		ArgsUsage:    "<path>",
		OnUsageError: onUsageError,
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return &usageError{msg: "get 需要一个路径参数"}
			}
			return cmdGet(cmd, cmd.Args().First())
		},
	}
}

func createSetCommand() *cli.Command {
	return &cli.Command{
		Name:         "set",
		Usage:        "设置节点值，路径不存在时创建；值为空字符串时删除值",
		ArgsUsage:    "<path> <value>",
		OnUsageError: onUsageError,
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return &usageError{msg: "set 需要路径和值两个参数"}
			}
			return cmdSet(cmd, cmd.Args().Get(0), cmd.Args().Get(1))
		},
	}
}

func createListCommand() *cli.Command {
	return &cli.Command{
		Name:         "ls",
		Usage:        "列出子节点",
		ArgsUsage:    "[path]",
		OnUsageError: onUsageError,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "unique",
				Aliases: []string{"u"},
				Usage:   "只列出去重后的名字",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 1 {
				return &usageError{msg: "ls 最多接受一个路径参数"}
			}
			return cmdList(cmd, cmd.Args().First(), cmd.Bool("unique"))
		},
	}
}

func createRemoveCommand() *cli.Command {
	return &cli.Command{
		Name:         "rm",
		Usage:        "删除节点及其子树",
		ArgsUsage:    "<path>",
		OnUsageError: onUsageError,
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 || cmd.Args().First() == "" {
				return &usageError{msg: "rm 需要一个非空路径参数"}
			}
			return cmdRemove(cmd, cmd.Args().First())
		},
	}
}

func createCleanCommand() *cli.Command {
	return &cli.Command{
		Name:         "clean",
		Usage:        "删除所有没有值也没有子节点的节点",
		OnUsageError: onUsageError,
		Action: func(_ context.Context, cmd *cli.Command) error {
			return mutate(cmd, func(doc *xtree.Document) error {
				doc.Clean()
				return nil
			})
		},
	}
}

func createValidateCommand() *cli.Command {
	return &cli.Command{
		Name:         "validate",
		Usage:        "校验节点名",
		OnUsageError: onUsageError,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "unique",
				Aliases: []string{"u"},
				Usage:   "同时拒绝同名兄弟节点",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdValidate(cmd, cmd.Bool("unique"))
		},
	}
}

func createExportCommand() *cli.Command {
	return &cli.Command{
		Name:         "export",
		Usage:        "以 YAML/JSON 输出整棵树",
		OnUsageError: onUsageError,
		Flags:        []cli.Flag{formatFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			format, err := parseFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			return cmdExport(cmd, format)
		},
	}
}

func createImportCommand() *cli.Command {
	return &cli.Command{
		Name:         "import",
		Usage:        "将 YAML/JSON 文件导入到 path 下（默认根节点）",
		ArgsUsage:    "<file> [path]",
		OnUsageError: onUsageError,
		Flags:        []cli.Flag{formatFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if n := cmd.Args().Len(); n < 1 || n > 2 {
				return &usageError{msg: "import 需要数据文件参数和可选的路径参数"}
			}
			format, err := parseFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			return cmdImport(cmd, format, cmd.Args().Get(0), cmd.Args().Get(1))
		},
	}
}

func createWatchCommand() *cli.Command {
	return &cli.Command{
		Name:         "watch",
		Usage:        "监视文件变更，每次重新加载后输出 path 处的值（默认整个文档）",
		ArgsUsage:    "[path]",
		OnUsageError: onUsageError,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Usage: "防抖时间",
				Value: 100 * time.Millisecond,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 1 {
				return &usageError{msg: "watch 最多接受一个路径参数"}
			}
			if cmd.Duration("debounce") <= 0 {
				return &usageError{msg: "--debounce 必须为正数"}
			}
			return cmdWatch(ctx, cmd, cmd.Args().First())
		},
	}
}

// =============================================================================
// 命令实现
// =============================================================================

func cmdGet(cmd *cli.Command, path string) error {
	doc, err := openDocument(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = doc.Close() }() //nolint:errcheck // read-only document never commits

	n, err := lookup(cmd, doc, path)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, n.Value())
	return nil
}

func cmdSet(cmd *cli.Command, path, value string) error {
	return mutate(cmd, func(doc *xtree.Document) error {
		n, err := doc.Root().Navigate(path)
		if err != nil {
			return &usageError{msg: err.Error()}
		}
		n.SetValue(value)
		return nil
	})
}

func cmdList(cmd *cli.Command, path string, unique bool) error {
	doc, err := openDocument(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = doc.Close() }() //nolint:errcheck // read-only document never commits

	n, err := lookup(cmd, doc, path)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	if unique {
		for _, name := range n.ChildrenNames(true) {
			fmt.Fprintln(w, name)
		}
		return nil
	}

	seen := make(map[string]int)
	for _, c := range n.Children() {
		seen[c.Name()]++
		if c.HasValue() {
			fmt.Fprintf(w, "%s#%d = %s\n", c.Name(), seen[c.Name()], c.Value())
			continue
		}
		fmt.Fprintf(w, "%s#%d\n", c.Name(), seen[c.Name()])
	}
	return nil
}

func cmdRemove(cmd *cli.Command, path string) error {
	return mutate(cmd, func(doc *xtree.Document) error {
		n, err := lookup(cmd, doc, path)
		if err != nil {
			return err
		}
		n.Remove()
		return nil
	})
}

func cmdValidate(cmd *cli.Command, unique bool) error {
	mode := xtree.ValidateCharset
	if unique {
		mode = xtree.ValidateUnique
	}

	doc, err := openDocument(cmd, false, xtree.WithValidationMode(mode))
	if errors.Is(err, xtree.ErrInvalidConfig) {
		fmt.Fprintf(cmd.Root().Writer, "无效 (%s)\n", mode)
		return &exitError{code: 1}
	}
	if err != nil {
		return err
	}
	defer func() { _ = doc.Close() }() //nolint:errcheck // read-only document never commits

	fmt.Fprintf(cmd.Root().Writer, "有效 (%s)\n", mode)
	return nil
}

func cmdExport(cmd *cli.Command, format xtree.Format) error {
	doc, err := openDocument(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = doc.Close() }() //nolint:errcheck // read-only document never commits

	data, err := doc.Export(format)
	if err != nil {
		return err
	}
	_, err = cmd.Root().Writer.Write(data)
	return err
}

func cmdImport(cmd *cli.Command, format xtree.Format, file, path string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("读取数据文件失败: %w", err)
	}
	return mutate(cmd, func(doc *xtree.Document) error {
		target, err := doc.Root().Navigate(path)
		if err != nil {
			return &usageError{msg: err.Error()}
		}
		return target.Import(data, format)
	})
}

func cmdWatch(ctx context.Context, cmd *cli.Command, path string) error {
	doc, err := openDocument(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = doc.Close() }() //nolint:errcheck // read-only document never commits

	if _, err := lookup(cmd, doc, path); err != nil {
		return err
	}

	out := cmd.Root().Writer
	printCurrent := func(d *xtree.Document) {
		if path == "" {
			fmt.Fprint(out, d.String())
			return
		}
		if n, ok, _ := d.Root().Lookup(path); ok {
			fmt.Fprintln(out, n.Value())
			return
		}
		fmt.Fprintf(cmd.Root().ErrWriter, "未找到: %s\n", path)
	}
	printCurrent(doc)

	w, err := xtree.Watch(doc, func(d *xtree.Document, err error) {
		if err != nil {
			fmt.Fprintf(cmd.Root().ErrWriter, "重新加载失败: %v\n", err)
			return
		}
		printCurrent(d)
	}, xtree.WithDebounce(cmd.Duration("debounce")))
	if err != nil {
		return err
	}

	w.StartAsync()
	<-ctx.Done()
	return w.Stop()
}

// =============================================================================
// 辅助函数
// =============================================================================

// openDocument 按全局选项打开配置文件。commit 决定 Close 时是否写回。
func openDocument(cmd *cli.Command, commit bool, opts ...xtree.Option) (*xtree.Document, error) {
	path := cmd.String("file")
	if path == "" {
		return nil, &usageError{msg: "必须通过 --file 指定配置文件"}
	}
	opts = append(opts,
		xtree.WithCommitOnUnload(commit),
		xtree.WithLogger(newLogger(cmd)),
	)
	return xtree.Open(path, cmd.Bool("create"), opts...)
}

// mutate 打开文档执行 fn，fn 成功后通过 Close 写回；fn 失败时不修改文件。
func mutate(cmd *cli.Command, fn func(*xtree.Document) error) error {
	doc, err := openDocument(cmd, true)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		doc.SetCommitOnUnload(false)
		return errors.Join(err, doc.Close())
	}
	return doc.Close()
}

// lookup 查找 path 处的节点，路径语法错误视为参数错误，节点不存在时返回退出码 1。
func lookup(cmd *cli.Command, doc *xtree.Document, path string) (xtree.Node, error) {
	n, ok, err := doc.Root().Lookup(path)
	if err != nil {
		return xtree.Node{}, &usageError{msg: err.Error()}
	}
	if !ok {
		fmt.Fprintf(cmd.Root().ErrWriter, "未找到: %s\n", path)
		return xtree.Node{}, &exitError{code: 1}
	}
	return n, nil
}

func newLogger(cmd *cli.Command) *slog.Logger {
	level := slog.LevelWarn
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.Root().ErrWriter, &slog.HandlerOptions{Level: level}))
}

func parseFormat(s string) (xtree.Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return xtree.FormatYAML, nil
	case "json":
		return xtree.FormatJSON, nil
	default:
		return "", &usageError{msg: fmt.Sprintf("不支持的格式 %q", s)}
	}
}

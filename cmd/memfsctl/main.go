// memfsctl seeds an in-memory filesystem from a YAML manifest and runs
// one inspection command against it: print the tree, dump a file, read
// attributes, match a glob, or create a temp file.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/memfs-go/memfs"
	"github.com/memfs-go/memfs/config"
	"github.com/memfs-go/memfs/filesystem"
	"github.com/memfs-go/memfs/fspath"
	"github.com/memfs-go/memfs/glob"
	"github.com/memfs-go/memfs/internal/util"
)

var (
	configPath string
	seedPath   string
	verbose    int
)

var rootCmd = &cobra.Command{
	Use:   "memfsctl",
	Short: "Inspect an in-memory filesystem seeded from a manifest",
	Long: `memfsctl builds an in-memory filesystem engine, optionally seeds it
from a YAML manifest of directories and files, and runs one inspection
command against it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose < 1 {
			verbose = 1
		}
		if verbose > 5 {
			verbose = 5
		}
		logLvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
		util.InitializeLogger(logLvls[verbose-1])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to engine config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&seedPath, "seed", "s", "", "Path to seed manifest (YAML)")
	rootCmd.PersistentFlags().IntVarP(&verbose, "verbose", "v", 3, "Log verbosity level between 1 (error) and 5 (trace)")

	rootCmd.AddCommand(treeCmd, catCmd, statCmd, globCmd, mktempCmd)
}

// seedManifest declares the initial tree: directories first, then files
// with inline content.
type seedManifest struct {
	Dirs []struct {
		Path string `yaml:"path"`
	} `yaml:"dirs"`
	Files []struct {
		Path    string `yaml:"path"`
		Content string `yaml:"content"`
	} `yaml:"files"`
}

// buildFS constructs the engine from the configured files.
func buildFS() (*filesystem.FileSystem, error) {
	logger := util.GetLogger("memfsctl")

	cfg := config.NewDefaultConfig()
	if configPath != "" {
		loaded, err := config.NewConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	fs, err := filesystem.New(cfg)
	if err != nil {
		return nil, err
	}
	if seedPath == "" {
		return fs, nil
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return nil, fmt.Errorf("read seed manifest: %w", err)
	}
	var manifest seedManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("unmarshal seed manifest: %w", err)
	}

	for _, d := range manifest.Dirs {
		p, err := fspath.Parse(d.Path)
		if err != nil {
			return nil, err
		}
		if _, err := fs.CreateDirAll(p); err != nil {
			return nil, err
		}
	}
	for _, f := range manifest.Files {
		p, err := fspath.Parse(f.Path)
		if err != nil {
			return nil, err
		}
		if parent, ok := p.Parent(); ok {
			if _, err := fs.CreateDirAll(parent); err != nil {
				return nil, err
			}
		}
		h, err := fs.OpenFile(p, memfs.OpenWrite|memfs.OpenCreateNew)
		if err != nil {
			return nil, err
		}
		if _, err := h.Write([]byte(f.Content)); err != nil {
			h.Close()
			return nil, err
		}
		h.Close()
	}
	logger.Info().Int("dirs", len(manifest.Dirs)).Int("files", len(manifest.Files)).Msg("Seeded filesystem")
	return fs, nil
}

// walkPaths collects every path in the tree in depth-first order.
func walkPaths(fs *filesystem.FileSystem, node *filesystem.Node, prefix fspath.Path, out *[]fspath.Path) {
	var names []string
	node.IterChildren(func(child *filesystem.Node) bool {
		names = append(names, child.Name())
		return true
	})
	sort.Strings(names)
	for _, name := range names {
		childPath := prefix.Resolve(fspath.MustParse(name))
		*out = append(*out, childPath)
		if child, ok := fs.Resolve(childPath); ok && child.IsDir() {
			walkPaths(fs, child, childPath, out)
		}
	}
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print every path in the seeded filesystem",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := buildFS()
		if err != nil {
			return err
		}
		for _, root := range fs.RootDirectories() {
			fmt.Println(root)
			node, _ := fs.Resolve(root)
			var paths []fspath.Path
			walkPaths(fs, node, root, &paths)
			for _, p := range paths {
				node, _ := fs.Resolve(p)
				marker := ""
				if node.IsDir() {
					marker = "/"
				}
				fmt.Printf("%s%s\n", p, marker)
			}
		}
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print the content of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := buildFS()
		if err != nil {
			return err
		}
		p, err := fspath.Parse(args[0])
		if err != nil {
			return err
		}
		h, err := fs.OpenFile(p, memfs.OpenRead)
		if err != nil {
			return err
		}
		defer h.Close()

		size, err := h.Size()
		if err != nil {
			return err
		}
		buf := make([]byte, size)
		if size > 0 {
			if _, err := h.Read(buf); err != nil {
				return err
			}
		}
		_, err = os.Stdout.Write(buf)
		return err
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Print the attributes of a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := buildFS()
		if err != nil {
			return err
		}
		p, err := fspath.Parse(args[0])
		if err != nil {
			return err
		}
		attrs, err := fs.AttributeView(p).ReadAttributes()
		if err != nil {
			return err
		}
		fmt.Printf("path:     %s\n", p)
		fmt.Printf("kind:     %s\n", attrs.Kind)
		fmt.Printf("size:     %d\n", attrs.Size)
		fmt.Printf("created:  %s\n", attrs.CreationTime.Format("2006-01-02T15:04:05Z07:00"))
		fmt.Printf("modified: %s\n", attrs.ModifiedTime.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	},
}

var globCmd = &cobra.Command{
	Use:   "glob <pattern>",
	Short: "List paths matching a pattern expression, e.g. glob:**/*.txt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := buildFS()
		if err != nil {
			return err
		}
		var opts []glob.Option
		if fs.Config().CaseInsensitive {
			opts = append(opts, glob.WithCaseFold())
		}
		matcher, err := glob.Compile(args[0], opts...)
		if err != nil {
			return err
		}

		var paths []fspath.Path
		for _, root := range fs.RootDirectories() {
			node, _ := fs.Resolve(root)
			walkPaths(fs, node, root, &paths)
		}
		matches := lo.Filter(paths, func(p fspath.Path, _ int) bool {
			return matcher.Matches(p)
		})
		for _, line := range lo.Map(matches, func(p fspath.Path, _ int) string {
			return p.String()
		}) {
			fmt.Println(line)
		}
		if len(matches) == 0 {
			fmt.Fprintln(os.Stderr, "no matches")
		}
		return nil
	},
}

var mktempCmd = &cobra.Command{
	Use:   "mktemp <dir> [prefix] [suffix]",
	Short: "Create a temp file in a directory and print its path",
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := buildFS()
		if err != nil {
			return err
		}
		dir, err := fspath.Parse(args[0])
		if err != nil {
			return err
		}
		prefix, suffix := "tmp", ""
		if len(args) > 1 {
			prefix = args[1]
		}
		if len(args) > 2 {
			suffix = args[2]
		}
		if _, err := fs.CreateDirAll(dir); err != nil {
			return err
		}
		p, err := fs.CreateTempFile(dir, prefix, suffix)
		if err != nil {
			return err
		}
		fmt.Println(p)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}

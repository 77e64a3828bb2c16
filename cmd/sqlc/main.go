// Command sqlc runs sqlc once per query file listed in .sqlc.base.yaml so
// each store package gets its own generated "sql" package next to the query.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const generatedConfigName = "sqlc.yaml"

// packageFor names the generated package after the directory holding the
// query: internal/.../subscriptions/sql/query.sql -> "sql".
func packageFor(queryFile string) (dir, pkg string) {
	dir, _ = filepath.Split(queryFile)
	parts := strings.Split(strings.TrimSuffix(dir, string(os.PathSeparator)), string(os.PathSeparator))
	return dir, parts[len(parts)-1]
}

func renderConfig(engine *viper.Viper, version, queryFile string) ([]byte, error) {
	dir, pkg := packageFor(queryFile)
	engine.Set("gen.go.package", pkg)
	engine.Set("gen.go.out", dir)
	engine.Set("queries", queryFile)

	settings := engine.AllSettings()
	delete(settings, "source")

	result := viper.New()
	result.Set("version", version)
	result.Set("sql", []interface{}{settings})

	bs, err := yaml.Marshal(result.AllSettings())
	if err != nil {
		return nil, errors.Wrap(err, "marshal config to yaml")
	}
	return bs, nil
}

func callSqlc(configFile string) error {
	cmd := exec.Command("sqlc", "generate", "--file", configFile)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "call sqlc: %s", string(output))
	}
	return nil
}

func queryFiles(patterns []string) ([]string, error) {
	files := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		f, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "glob %s", pattern)
		}
		files = append(files, f...)
	}
	return files, nil
}

func run(base string) error {
	v := viper.New()
	v.SetConfigFile(base)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrap(err, "read base config")
	}

	sources := v.GetStringSlice("sql.0.source")
	if len(sources) == 0 {
		return errors.New("has no sql.0.source in config")
	}
	files, err := queryFiles(sources)
	if err != nil {
		return err
	}

	engine := v.Sub("sql.0")
	engine.Set("schema", v.GetString("sql.0.schema"))
	defer func() { _ = os.Remove(generatedConfigName) }()

	for _, file := range files {
		content, err := renderConfig(engine, v.GetString("version"), file)
		if err != nil {
			return err
		}
		if err := os.WriteFile(generatedConfigName, content, 0o644); err != nil {
			return errors.Wrap(err, "write sqlc.yaml")
		}
		if err := callSqlc(generatedConfigName); err != nil {
			return errors.Wrapf(err, "generate %s", file)
		}
		fmt.Printf("%s file complete\n", file)
	}
	fmt.Println("done")
	return nil
}

func main() {
	base := pflag.String("base", ".sqlc.base.yaml", "base sqlc config with sql.0.source globs")
	pflag.Parse()

	if err := run(*base); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	executableName = "cryptogauge"
	versionPackage = "github.com/cryptogauge/cryptogauge/internal/cryptogauge"
)

type archiveType int

const (
	archiveTypeTarGz archiveType = iota
	archiveTypeZip
)

type buildTarget struct {
	os        string
	arch      string
	armV      int
	extension string
	archive   archiveType
}

var buildTargets = []buildTarget{
	{os: "windows", arch: "amd64", extension: ".exe", archive: archiveTypeZip},
	{os: "windows", arch: "arm64", extension: ".exe", archive: archiveTypeZip},
	{os: "darwin", arch: "arm64"},
	{os: "linux", arch: "amd64"},
	{os: "linux", arch: "arm64"},
	{os: "linux", arch: "arm", armV: 7},
}

func (t buildTarget) name() string {
	if t.arch == "arm" {
		return fmt.Sprintf("%s-%s-%sv%d%s", executableName, t.os, t.arch, t.armV, t.extension)
	}

	return fmt.Sprintf("%s-%s-%s%s", executableName, t.os, t.arch, t.extension)
}

func (t buildTarget) archiveName() string {
	base := strings.TrimSuffix(t.name(), t.extension)

	if t.archive == archiveTypeZip {
		return base + ".zip"
	}

	return base + ".tar.gz"
}

func (t buildTarget) env() []string {
	env := append(os.Environ(), "GOOS="+t.os, "GOARCH="+t.arch, "CGO_ENABLED=0")

	if t.arch == "arm" {
		env = append(env, fmt.Sprintf("GOARM=%d", t.armV))
	}

	return env
}

func ldflags(version string) string {
	return fmt.Sprintf("-s -w -X %s.buildVersion=%s", versionPackage, version)
}

func main() {
	var (
		tag       string
		outputDir string
		dirty     bool
		parallel  int
	)

	cmd := &cobra.Command{
		Use:          "release",
		Short:        "Build release archives of cryptogauge for every supported platform",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !dirty {
				uncommitted, err := hasUncommittedChanges()
				if err != nil {
					return err
				}

				if uncommitted {
					return errors.New("there are uncommitted changes, commit, stash or discard them first")
				}
			}

			version := tag
			if version == "" {
				var err error
				if version, err = versionFromGit(); err != nil {
					return err
				}
			}

			return buildAll(cmd.Context(), cmd.OutOrStdout(), version, outputDir, parallel)
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Version to stamp into the binaries, defaults to the latest git tag")
	cmd.Flags().StringVar(&outputDir, "output", "./build", "Directory for binaries and archives")
	cmd.Flags().BoolVar(&dirty, "allow-dirty", false, "Build even when there are uncommitted changes")
	cmd.Flags().IntVar(&parallel, "parallel", runtime.NumCPU(), "Number of targets built at the same time")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func hasUncommittedChanges() (bool, error) {
	output, err := exec.Command("git", "status", "--porcelain").CombinedOutput()
	if err != nil {
		return false, fmt.Errorf("checking git status: %w: %s", err, output)
	}

	return len(output) > 0, nil
}

func versionFromGit() (string, error) {
	output, err := exec.Command("git", "describe", "--tags", "--abbrev=0").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("reading latest tag: %w: %s", err, output)
	}

	return strings.TrimSpace(string(output)), nil
}

func buildAll(ctx context.Context, out io.Writer, version, outputDir string, parallel int) error {
	archivesDir := filepath.Join(outputDir, "archives")

	if err := os.RemoveAll(outputDir); err != nil {
		return err
	}

	if err := os.MkdirAll(archivesDir, 0o755); err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(max(1, parallel))

	for _, target := range buildTargets {
		group.Go(func() error {
			binaryPath := filepath.Join(outputDir, target.name())

			if err := build(ctx, version, binaryPath, target); err != nil {
				return fmt.Errorf("building %s/%s: %w", target.os, target.arch, err)
			}

			archivePath := filepath.Join(archivesDir, target.archiveName())
			if err := archiveFile(archivePath, binaryPath, target.archive); err != nil {
				return fmt.Errorf("archiving %s: %w", target.name(), err)
			}

			fmt.Fprintf(out, "Built %s\n", archivePath)
			return nil
		})
	}

	return group.Wait()
}

func build(ctx context.Context, version, binaryPath string, target buildTarget) error {
	cmd := exec.CommandContext(ctx, "go", "build", "-trimpath", "-ldflags", ldflags(version), "-o", binaryPath, ".")
	cmd.Env = target.env()

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, output)
	}

	return os.Chmod(binaryPath, 0o755)
}

func archiveFile(archivePath, binaryPath string, t archiveType) error {
	archive, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	binary, err := os.Open(binaryPath)
	if err != nil {
		return err
	}
	defer binary.Close()

	info, err := binary.Stat()
	if err != nil {
		return err
	}

	if t == archiveTypeZip {
		return writeZip(archive, binary, info)
	}

	return writeTarGz(archive, binary, info)
}

func writeZip(w io.Writer, binary io.Reader, info os.FileInfo) error {
	zipWriter := zip.NewWriter(w)

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Method = zip.Deflate

	entry, err := zipWriter.CreateHeader(header)
	if err != nil {
		return err
	}

	if _, err = io.Copy(entry, binary); err != nil {
		return err
	}

	return zipWriter.Close()
}

func writeTarGz(w io.Writer, binary io.Reader, info os.FileInfo) error {
	gzipWriter := gzip.NewWriter(w)
	tarWriter := tar.NewWriter(gzipWriter)

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}

	if err = tarWriter.WriteHeader(header); err != nil {
		return err
	}

	if _, err = io.Copy(tarWriter, binary); err != nil {
		return err
	}

	if err = tarWriter.Close(); err != nil {
		return err
	}

	return gzipWriter.Close()
}

// scraper/extract.go
package scraper

import (
	"fmt"
	"io"
	"log"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/ibis-project/ibis-examples/models"
	"github.com/ibis-project/ibis-examples/utils"
)

// ExtractMember copies the archive entry named exactly memberName out of the
// ZIP at archivePath into destDir/memberName and returns that path.
func ExtractMember(archivePath, memberName, destDir string) (string, error) {
	if !safeMemberName(memberName) {
		return "", fmt.Errorf("%w: refusing to extract unsafe member name %q", models.ErrArchive, memberName)
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open archive %s: %w", models.ErrArchive, archivePath, err)
	}
	defer zr.Close()

	var member *zip.File
	for _, f := range zr.File {
		if f.Name == memberName {
			member = f
			break
		}
	}
	if member == nil {
		return "", fmt.Errorf("%w: member %q not found in %s", models.ErrArchive, memberName, archivePath)
	}

	destPath := filepath.Join(destDir, filepath.FromSlash(memberName))
	log.Printf("Scraper: Extracting %s (%d bytes) from %s\n", memberName, member.UncompressedSize64, archivePath)

	rc, err := member.Open()
	if err != nil {
		return "", fmt.Errorf("%w: failed to open member %q: %w", models.ErrArchive, memberName, err)
	}
	defer rc.Close()

	err = utils.WriteFileAtomic(destPath, func(w io.Writer) error {
		if _, err := io.Copy(w, rc); err != nil {
			return fmt.Errorf("%w: failed to decompress %q: %w", models.ErrArchive, memberName, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return destPath, nil
}

// safeMemberName rejects names that would escape the destination directory.
func safeMemberName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, `\`) {
		return false
	}
	for _, part := range strings.Split(path.Clean(name), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

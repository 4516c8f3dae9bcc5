package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/eringen/rilis/scaffold"
)

func runInit(dir string) error {
	password, err := randomHex(12)
	if err != nil {
		return err
	}
	secret, err := randomHex(32)
	if err != nil {
		return err
	}

	data := scaffold.Data{
		SiteName:      toTitle(filepath.Base(dir)),
		SiteURL:       "http://localhost:3000",
		AdminUsername: "admin",
		AdminPassword: password,
		SessionSecret: secret,
	}

	fmt.Printf("Creating new rilis site: %s\n\n", dir)
	files, err := scaffold.Write(afero.NewOsFs(), dir, data)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Printf("  created %s\n", f)
	}

	fmt.Println()
	fmt.Println("Done! Next steps:")
	fmt.Println()
	fmt.Printf("  cd %s\n", dir)
	fmt.Println("  rilis serve")
	fmt.Println()
	fmt.Printf("Log in as %q with password %q and change it in config.yml.\n", data.AdminUsername, password)
	return nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// toTitle converts a hyphenated or lowercase name to a title-case string.
// e.g. "my-blog" -> "My Blog", "myblog" -> "Myblog"
func toTitle(s string) string {
	parts := strings.Split(s, "-")
	for i, p := range parts {
		if len(p) > 0 {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

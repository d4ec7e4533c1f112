package config

import "fmt"

// ICSConfig feeds the PRODID of generated calendar documents.
type ICSConfig struct {
	CompanyName string
	ProductName string
	Version     string
	Language    string
}

func (cfg *ICSConfig) BuildProdID() string {
	lang := cfg.Language
	if lang == "" {
		lang = "EN"
	}
	if cfg.Version != "" {
		return fmt.Sprintf("-//%s//%s %s//%s", cfg.CompanyName, cfg.ProductName, cfg.Version, lang)
	}
	return fmt.Sprintf("-//%s//%s//%s", cfg.CompanyName, cfg.ProductName, lang)
}

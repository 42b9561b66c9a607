package engine

import (
	"fmt"
)

const (
	mysqlPasswordLength = 16
	adminPasswordLength = 12
)

// WooCommerce provisions WordPress + WooCommerce stores backed by MySQL.
// The chart is expected to expose Bitnami-WordPress-shaped values.
type WooCommerce struct {
	chartPath  string
	baseDomain string
	adminUser  string
	adminEmail string
}

// WooCommerceConfig holds the static engine parameters from configuration
type WooCommerceConfig struct {
	ChartPath  string
	BaseDomain string
	AdminUser  string
	AdminEmail string
}

// NewWooCommerce creates the WooCommerce engine
func NewWooCommerce(cfg WooCommerceConfig) *WooCommerce {
	return &WooCommerce{
		chartPath:  cfg.ChartPath,
		baseDomain: cfg.BaseDomain,
		adminUser:  cfg.AdminUser,
		adminEmail: cfg.AdminEmail,
	}
}

// Name returns the engine tag
func (w *WooCommerce) Name() string {
	return "woocommerce"
}

// ChartPath returns the configured WordPress chart location
func (w *WooCommerce) ChartPath() string {
	return w.chartPath
}

// Values builds chart values for one store. The MySQL root and user
// passwords and the WordPress admin password are freshly generated on every
// call; retries therefore rotate credentials, which is safe because the
// release-exists check skips reinstallation of a live release.
func (w *WooCommerce) Values(storeID string) (map[string]string, error) {
	rootPassword, err := generatePassword(mysqlPasswordLength)
	if err != nil {
		return nil, err
	}
	dbPassword, err := generatePassword(mysqlPasswordLength)
	if err != nil {
		return nil, err
	}
	adminPassword, err := generatePassword(adminPasswordLength)
	if err != nil {
		return nil, err
	}

	domain := w.domain(storeID)
	return map[string]string{
		"wordpressUsername": w.adminUser,
		"wordpressEmail":    w.adminEmail,
		"wordpressPassword": adminPassword,
		"wordpressBlogName": storeID,

		"mariadb.auth.rootPassword": rootPassword,
		"mariadb.auth.database":     "wordpress",
		"mariadb.auth.username":     "wordpress",
		"mariadb.auth.password":     dbPassword,

		"ingress.enabled":          "true",
		"ingress.hostname":         domain,
		"ingress.ingressClassName": "nginx",
	}, nil
}

// URLs computes the public URLs for a store
func (w *WooCommerce) URLs(storeID string) (string, string) {
	storeURL := fmt.Sprintf("http://%s", w.domain(storeID))
	return storeURL, storeURL + "/wp-admin"
}

// Validate reports availability. WooCommerce requires a configured chart
// path and base domain.
func (w *WooCommerce) Validate() ValidationResult {
	if w.chartPath == "" {
		return ValidationResult{Error: "WooCommerce engine has no chart path configured"}
	}
	if w.baseDomain == "" {
		return ValidationResult{Error: "WooCommerce engine has no base domain configured"}
	}
	return ValidationResult{Valid: true}
}

func (w *WooCommerce) domain(storeID string) string {
	return fmt.Sprintf("%s.%s", storeID, w.baseDomain)
}

package scan

// Scan-key catalog. Each key names one probe module and the lowest tier
// allowed to run it.
const (
	KeyHTTPSEnforcement  = "https-enforcement"
	KeySecurityHeaders   = "security-headers"
	KeyCookieFlags       = "cookie-flags"
	KeyDNSRecords        = "dns-records"
	KeyTLSExpiry         = "tls-expiry"
	KeyServerFingerprint = "server-fingerprint"
	KeyAdminPaths        = "admin-paths"
	KeyTLSProtocolFloor  = "tls-protocol-floor"
)

var keyTiers = map[string]Mode{
	KeyHTTPSEnforcement:  ModeBusiness,
	KeySecurityHeaders:   ModeBusiness,
	KeyCookieFlags:       ModeBusiness,
	KeyDNSRecords:        ModeEngineer,
	KeyTLSExpiry:         ModeEngineer,
	KeyServerFingerprint: ModeEngineer,
	KeyAdminPaths:        ModeSuperAdmin,
	KeyTLSProtocolFloor:  ModeSuperAdmin,
}

// KnownKey reports whether key is in the catalog.
func KnownKey(key string) bool {
	_, ok := keyTiers[key]
	return ok
}

// FilterKeys drops unrecognized and tier-inappropriate keys from selected,
// preserving request order and deduplicating. Dropped keys are never
// executed. An empty selection means "everything the mode allows".
func FilterKeys(mode Mode, selected []string) []string {
	if len(selected) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(selected))
	kept := make([]string, 0, len(selected))
	for _, key := range selected {
		tier, ok := keyTiers[key]
		if !ok {
			continue
		}
		if !mode.Includes(tier) {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, key)
	}
	return kept
}

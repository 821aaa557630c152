package scan

import (
	"reflect"
	"testing"
)

func TestFilterKeys(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		selected []string
		want     []string
	}{
		{
			name:     "empty selection means run everything",
			mode:     ModeBusiness,
			selected: nil,
			want:     nil,
		},
		{
			name:     "unrecognized keys dropped",
			mode:     ModeBusiness,
			selected: []string{"nonsense", KeySecurityHeaders},
			want:     []string{KeySecurityHeaders},
		},
		{
			name:     "tier-inappropriate keys dropped for business",
			mode:     ModeBusiness,
			selected: []string{KeyDNSRecords, KeyAdminPaths, KeyCookieFlags},
			want:     []string{KeyCookieFlags},
		},
		{
			name:     "engineer mode reaches engineer keys but not admin",
			mode:     ModeEngineer,
			selected: []string{KeyDNSRecords, KeyAdminPaths},
			want:     []string{KeyDNSRecords},
		},
		{
			name:     "super-admin reaches everything",
			mode:     ModeSuperAdmin,
			selected: []string{KeyAdminPaths, KeyDNSRecords, KeyHTTPSEnforcement},
			want:     []string{KeyAdminPaths, KeyDNSRecords, KeyHTTPSEnforcement},
		},
		{
			name:     "duplicates removed, order preserved",
			mode:     ModeBusiness,
			selected: []string{KeyCookieFlags, KeySecurityHeaders, KeyCookieFlags},
			want:     []string{KeyCookieFlags, KeySecurityHeaders},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterKeys(tc.mode, tc.selected)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("FilterKeys(%s, %v) = %v, want %v", tc.mode, tc.selected, got, tc.want)
			}
		})
	}
}

func TestModeIncludes(t *testing.T) {
	if !ModeBusiness.Includes(ModeBusiness) {
		t.Fatal("every mode includes the business tier")
	}
	if ModeBusiness.Includes(ModeEngineer) || ModeBusiness.Includes(ModeSuperAdmin) {
		t.Fatal("business must not reach higher tiers")
	}
	if !ModeEngineer.Includes(ModeBusiness) || !ModeEngineer.Includes(ModeEngineer) {
		t.Fatal("engineer includes business and engineer tiers")
	}
	if ModeEngineer.Includes(ModeSuperAdmin) {
		t.Fatal("engineer must not reach the admin tier")
	}
	if !ModeSuperAdmin.Includes(ModeBusiness) || !ModeSuperAdmin.Includes(ModeEngineer) ||
		!ModeSuperAdmin.Includes(ModeSuperAdmin) {
		t.Fatal("super-admin includes all tiers")
	}
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"business", "engineer", "super-admin"} {
		if _, ok := ParseMode(valid); !ok {
			t.Fatalf("ParseMode(%q) rejected a valid mode", valid)
		}
	}
	for _, invalid := range []string{"", "admin", "Business", "root"} {
		if _, ok := ParseMode(invalid); ok {
			t.Fatalf("ParseMode(%q) accepted an invalid mode", invalid)
		}
	}
}

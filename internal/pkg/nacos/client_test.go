package nacos

import "testing"

func TestParseServerConfigs(t *testing.T) {
	cfgs, err := ParseServerConfigs("10.0.0.1:8848, 10.0.0.2:8849")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfgs) != 2 {
		t.Fatalf("got %d configs", len(cfgs))
	}
	if cfgs[1].IpAddr != "10.0.0.2" || cfgs[1].Port != 8849 {
		t.Errorf("second config = %+v", cfgs[1])
	}

	for _, bad := range []string{"", "localhost", "host:port", ":8848"} {
		if _, err := ParseServerConfigs(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

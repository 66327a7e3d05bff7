package model

import "testing"

func TestCountStatuses(t *testing.T) {
	got := CountStatuses([]Device{
		{ID: "a", Status: DeviceStatusOnline},
		{ID: "b", Status: DeviceStatusWarning},
		{ID: "c", Status: DeviceStatusOffline},
	})
	want := Aggregates{Total: 3, Online: 1, Warning: 1, Offline: 1}
	if got != want {
		t.Fatalf("CountStatuses() = %+v, want %+v", got, want)
	}
}

func TestCountStatuses_UnknownStatusOnlyCountsTowardTotal(t *testing.T) {
	got := CountStatuses([]Device{
		{ID: "a", Status: DeviceStatusOnline},
		{ID: "b", Status: "maintenance"},
		{ID: "c", Status: ""},
	})
	want := Aggregates{Total: 3, Online: 1}
	if got != want {
		t.Fatalf("CountStatuses() = %+v, want %+v", got, want)
	}
}

func TestCountStatuses_Empty(t *testing.T) {
	if got := CountStatuses(nil); got != (Aggregates{}) {
		t.Fatalf("CountStatuses(nil) = %+v, want zero", got)
	}
}

func TestDeviceTypeValid(t *testing.T) {
	for _, typ := range DeviceTypes() {
		if !typ.Valid() {
			t.Fatalf("%q should be valid", typ)
		}
	}
	if DeviceType("toaster").Valid() {
		t.Fatalf("toaster should not be a valid device type")
	}
}

func TestDeviceStatusValid(t *testing.T) {
	if !DeviceStatusWarning.Valid() {
		t.Fatalf("warning should be valid")
	}
	if DeviceStatus("ONLINE").Valid() {
		t.Fatalf("status matching is case-sensitive")
	}
}

package rti

import (
	"github.com/rf4ce/remoti/pkg/config"
	"github.com/rf4ce/remoti/pkg/nvstore"
)

// CPTable is the configuration-parameter boot snapshot: attributes that
// the firmware reads once at InitReq and then holds fixed for the
// remainder of the session, even if the backing NV values are rewritten
// mid-session by a management tool. Written at defaults on cold boot;
// read back unchanged on every subsequent InitReq.
type CPTable struct {
	PairingTableSize  int     `json:"pairing_table_size"`
	VendorID          uint16  `json:"vendor_id"`
	VendorString      [7]byte `json:"vendor_string"`
	NodeCapabilities  uint8   `json:"node_capabilities"`
	StandbyActivePeriod uint32 `json:"standby_active_period_ms"`
}

const cpTableField = "snapshot"

// cpTableFromStack snapshots the RTI_CP_ITEM_* fields out of the running
// config at cold boot, the Go-side equivalent of rtiCpStorage's
// set-default-NIB initialization pass.
func cpTableFromStack(stack *config.Stack) CPTable {
	return CPTable{
		PairingTableSize:    stack.PairingTableSize,
		VendorID:            stack.VendorID,
		VendorString:        stack.VendorString,
		NodeCapabilities:    stack.NodeCapabilities,
		StandbyActivePeriod: stack.StandbyActivePeriod,
	}
}

func loadCPTable(store *nvstore.Store) (CPTable, bool, error) {
	if store == nil {
		return CPTable{}, false, nil
	}
	var cp CPTable
	found, err := store.Get(nvstore.ItemCPTable, cpTableField, &cp)
	return cp, found, err
}

func saveCPTable(store *nvstore.Store, cp CPTable) error {
	if store == nil {
		return nil
	}
	return store.Put(nvstore.ItemCPTable, cpTableField, cp)
}

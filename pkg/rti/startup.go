package rti

import (
	"fmt"

	"github.com/rf4ce/remoti/internal/obs"
	"github.com/rf4ce/remoti/pkg/nvstore"
	"github.com/rf4ce/remoti/pkg/rcn"
)

// StartupControl selects what InitReq does with prior NV state.
type StartupControl uint8

const (
	// RestoreState resumes from whatever is already in NV (a warm boot).
	RestoreState StartupControl = iota
	// ClearState wipes the pairing table and NIB but keeps the CP table.
	ClearState
	// ClearConfigClearState wipes the CP table as well, forcing a full
	// cold-boot re-provisioning.
	ClearConfigClearState
)

const bootFlagField = "boot_flag"

// InitReq runs the cold/warm-boot sequence: on a genuine cold boot (no
// boot flag present in NV) the CP table is snapshotted from the running
// config and written once; on every later boot it is instead read back
// unchanged, so a management tool rewriting the backing config mid-life
// does not silently reconfigure an already-commissioned node. StartupControl
// additionally governs whether the pairing table and NIB survive the boot.
func (r *RTI) InitReq(control StartupControl) (CPTable, error) {
	r.mu.Lock()
	store := r.store
	stack := r.stack
	r.mu.Unlock()

	coldBoot := true
	if store != nil {
		var flag bool
		found, err := store.Get(nvstore.ItemBootFlag, bootFlagField, &flag)
		if err != nil {
			return CPTable{}, err
		}
		coldBoot = !found || !flag
	}

	var cp CPTable
	if coldBoot {
		cp = cpTableFromStack(stack)
		if err := saveCPTable(store, cp); err != nil {
			return CPTable{}, err
		}
		if store != nil {
			if err := store.Put(nvstore.ItemBootFlag, bootFlagField, true); err != nil {
				return CPTable{}, err
			}
		}
		obs.Logger.Info("RTI cold boot: CP table snapshotted")
	} else {
		loaded, found, err := loadCPTable(store)
		if err != nil {
			return CPTable{}, err
		}
		if found {
			cp = loaded
		}
		obs.Logger.Debug("RTI warm boot: CP table unchanged")
	}

	switch control {
	case ClearState:
		r.clearPairingAndNIB()
	case ClearConfigClearState:
		r.clearPairingAndNIB()
		if store != nil {
			if err := store.ClearItem(nvstore.ItemCPTable); err != nil {
				return cp, err
			}
		}
		cp = cpTableFromStack(stack)
		if err := saveCPTable(store, cp); err != nil {
			return cp, err
		}
	}

	status, err := r.layer.StartReq()
	if err != nil {
		return cp, err
	}
	if status != rcn.StatusSuccess {
		return cp, fmt.Errorf("rti: NLME-START failed during InitReq: %s", status)
	}

	r.mu.Lock()
	r.setState(StateReady)
	r.mu.Unlock()

	return cp, nil
}

func (r *RTI) clearPairingAndNIB() {
	r.layer.ResetReq(true)
}

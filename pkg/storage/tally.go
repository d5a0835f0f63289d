package storage

import (
	"sync"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/config"
)

// tallySaveEvery is how many collections may go unsaved before the tally is
// written without a finished box.
const tallySaveEvery = 6

// TallyKeeper folds the engine's progress counters into the persisted tally.
type TallyKeeper struct {
	mu    sync.Mutex
	store *Manager
	tally config.Tally

	// engine counters at the last Observe
	collected uint32
	boxes     uint32
	unsaved   uint32
	done      bool
}

// NewTallyKeeper loads the stored tally, counts this boot as a run and saves
// it back.
func NewTallyKeeper(store *Manager) (*TallyKeeper, error) {
	k := &TallyKeeper{store: store}
	if err := store.LoadTally(&k.tally); err != nil && err != ErrNotFound && err != ErrInvalidData {
		return nil, err
	}
	k.tally.Runs++
	if err := store.SaveTally(&k.tally); err != nil {
		return nil, err
	}
	return k, nil
}

// Observe records the engine's counters since boot. The tally is saved when a
// box finished, when the run finished, or after tallySaveEvery collections.
func (k *TallyKeeper) Observe(collected, boxes uint32, done bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if collected < k.collected || boxes < k.boxes {
		// The engine was reset; start counting from here
		k.collected, k.boxes = collected, boxes
		return nil
	}

	eggs := collected - k.collected
	newBoxes := boxes - k.boxes
	k.collected, k.boxes = collected, boxes

	k.tally.Eggs += eggs
	k.tally.Boxes += newBoxes
	k.unsaved += eggs

	finished := done && !k.done
	k.done = done

	if newBoxes == 0 && !finished && k.unsaved < tallySaveEvery {
		return nil
	}
	k.unsaved = 0
	return k.store.SaveTally(&k.tally)
}

// Tally returns the current tally, saved or not.
func (k *TallyKeeper) Tally() config.Tally {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tally
}

// Reset clears the tally in memory and on flash.
func (k *TallyKeeper) Reset() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.tally = config.Tally{}
	k.unsaved = 0
	return k.store.ResetTally()
}

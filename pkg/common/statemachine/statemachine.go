// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package statemachine

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Rule is struct to define the transition rules
// Rule is from one source state to multiple destination states
type Rule struct {
	// from is the source state
	From State
	// to is the destination states
	To []State
	// callback is run on every transition out of From
	Callback func(*Transition) error
}

// Callback is the type for callback function
type Callback func(*Transition) error

// StateMachine is the interface wrapping around the statemachine Object
type StateMachine interface {
	// TransitTo function transits to desired state
	TransitTo(to State, reason string, args ...interface{}) error

	// GetCurrentState returns the current state of State Machine
	GetCurrentState() State

	// GetReason returns the reason for the last state transition
	GetReason() string

	// GetName returns the Name of the StateMachine object
	GetName() string

	// GetLastUpdateTime returns the last update time of the state machine
	GetLastUpdateTime() time.Time
}

// statemachine is responsible for moving states from source to destination
// and running the callbacks of the transition.
type statemachine struct {
	sync.RWMutex

	// name of the object with which state machine is associated with
	name string

	// current is the current state of the object
	current State

	// rules are defined as srcState -> []destStates
	rules map[State]*Rule

	// global transition callback which applies to all state transitions
	transitionCallback func(*Transition) error

	// lastUpdatedTime records the time when last state is transitioned
	lastUpdatedTime time.Time

	// reason records the reason for a state transition
	reason string
}

// NewStateMachine creates the new state machine. The callbacks run while the
// state machine is locked, so they must only use GetName of the transition's
// state machine.
func NewStateMachine(
	name string,
	current State,
	rules map[State]*Rule,
	transitionCallback Callback,
) (StateMachine, error) {
	sm := &statemachine{
		name:               name,
		current:            current,
		rules:              make(map[State]*Rule),
		transitionCallback: transitionCallback,
		lastUpdatedTime:    time.Now(),
	}

	if err := sm.addRules(rules); err != nil {
		return nil, err
	}
	return sm, nil
}

// addRules add the rules which defines the transitions
func (sm *statemachine) addRules(rules map[State]*Rule) error {
	for from, r := range rules {
		if r.From != from {
			return errors.Errorf("rule from %s registered for state %s", r.From, from)
		}
		if err := sm.validateRule(r); err != nil {
			return err
		}
	}
	sm.rules = rules
	return nil
}

// validateRule rejects rules with duplicate destinations
func (sm *statemachine) validateRule(rule *Rule) error {
	destinations := make(map[State]bool)
	for _, s := range rule.To {
		if destinations[s] {
			log.WithFields(log.Fields{
				"from": rule.From,
				"to":   s,
			}).Error("Already exists, duplicate entry")
			return errors.New("invalid rule to be applied, duplicate destinations")
		}
		destinations[s] = true
	}
	return nil
}

// TransitTo is the function which clients will call to transition from one
// state to other, it also calls the callbacks after the valid transition is
// done.
func (sm *statemachine) TransitTo(to State, reason string, args ...interface{}) error {
	sm.Lock()
	defer sm.Unlock()

	if err := sm.isValidTransition(to); err != nil {
		return err
	}

	t := &Transition{
		StateMachine: sm,
		From:         sm.current,
		To:           to,
		Params:       args,
	}

	curState := sm.current
	sm.current = to
	sm.lastUpdatedTime = time.Now()
	sm.reason = reason

	if callback := sm.rules[curState].Callback; callback != nil {
		if err := callback(t); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"name":          sm.name,
				"current_state": curState,
				"to_state":      to,
			}).Error("callback failed")
			return err
		}
	}

	if sm.transitionCallback != nil {
		if err := sm.transitionCallback(t); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"name":          sm.name,
				"current_state": curState,
				"to_state":      to,
			}).Error("transition callback failed")
			return err
		}
	}
	return nil
}

// isValidTransition checks if the transition is allowed
// from source state to destination state
func (sm *statemachine) isValidTransition(to State) error {
	if sm.current == to {
		return errors.Errorf("already reached to state %s no need to "+
			"transition", to)
	}
	if val, ok := sm.rules[sm.current]; ok {
		for _, dest := range val.To {
			if dest == to {
				return nil
			}
		}
	}
	return errors.Errorf("invalid transition for %s [from %s to %s]",
		sm.name, sm.current, to)
}

// GetCurrentState returns the current state of the state machine
func (sm *statemachine) GetCurrentState() State {
	sm.RLock()
	defer sm.RUnlock()
	return sm.current
}

func (sm *statemachine) GetReason() string {
	sm.RLock()
	defer sm.RUnlock()
	return sm.reason
}

func (sm *statemachine) GetLastUpdateTime() time.Time {
	sm.RLock()
	defer sm.RUnlock()
	return sm.lastUpdatedTime
}

// GetName returns the name of the state machine object
func (sm *statemachine) GetName() string {
	return sm.name
}

// Copyright (c) 2023 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package boolalg

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_NewAndName(t *testing.T) {
	r := NewRegistry()
	a, err := r.New("a")
	require.NoError(t, err)
	b, err := r.New("b")
	require.NoError(t, err)

	require.Equal(t, "a", r.Name(a))
	require.Equal(t, "b", r.Name(b))
	require.NotEqual(t, a, b)
	require.Equal(t, 2, r.Len())
	require.True(t, a.IsValid())
}

func TestRegistry_CapacityError(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < MaxVariables; i++ {
		_, err := r.New(fmt.Sprintf("v%d", i))
		require.NoError(t, err)
	}
	v, err := r.New("overflow")
	require.Error(t, err)
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, MaxVariables, capErr.Limit)
	require.False(t, v.IsValid())
}

func TestRegistry_NamePanicsOnForeignVariable(t *testing.T) {
	r := NewRegistry()
	other := NewRegistry()
	_, err := other.New("foreign")
	require.NoError(t, err)
	v, err := other.New("second")
	require.NoError(t, err)
	require.Panics(t, func() { r.Name(v) })
}

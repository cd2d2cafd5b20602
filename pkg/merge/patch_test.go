package merge

import (
	"testing"

	"github.com/cuemby/tableside/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingSnapshot() *types.Envelope {
	return &types.Envelope{
		Success: true,
		Data: []types.Reservation{
			{
				ReservationCode: "R1",
				Menus: []types.MenuLine{
					{ID: "10", Name: "Cơm Gà", Quantity: 1, Price: "60000"},
					{ID: "5", Name: "Phở", Quantity: 2, Price: "80000", IsNew: true},
					{ID: "11", Name: "Trà đá", Quantity: 4, Price: "10000"},
				},
			},
			{
				ReservationCode: "R2",
				Menus: []types.MenuLine{
					{ID: "5", Name: "Phở", Quantity: 1, Price: "80000", IsNew: true},
				},
			},
		},
	}
}

func TestApplyPatchAdd(t *testing.T) {
	entries := []types.PendingEntry{
		{ID: "1-1-a", DishID: 1, Name: "Phở Bò", Quantity: 2, Price: "80000", IsNew: true},
	}

	out := ApplyPatch(pendingSnapshot(), AddPatch("R1", entries))

	menus := out.Data[0].Menus
	require.Len(t, menus, 4)
	assert.Equal(t, types.MenuLine{ID: "1-1-a", Name: "Phở Bò", Quantity: 2, Price: "80000", IsNew: true}, menus[3])
	assert.Len(t, out.Data[1].Menus, 1, "other reservations untouched")
}

func TestApplyPatchConfirm(t *testing.T) {
	out := ApplyPatch(pendingSnapshot(), ConfirmPatch("R1", "5"))

	menus := out.Data[0].Menus
	require.Len(t, menus, 3, "confirm keeps the line")
	assert.Equal(t, types.MenuLine{ID: "5", Name: "Phở", Quantity: 2, Price: "80000"}, menus[1])
	assert.True(t, out.Data[1].Menus[0].IsNew, "same id in another reservation is not confirmed")
}

func TestApplyPatchCancel(t *testing.T) {
	out := ApplyPatch(pendingSnapshot(), CancelPatch("R1", "5"))

	menus := out.Data[0].Menus
	require.Len(t, menus, 2)
	assert.Equal(t, types.LineID("10"), menus[0].ID)
	assert.Equal(t, types.LineID("11"), menus[1].ID)
}

func TestApplyPatchIsPure(t *testing.T) {
	tests := []struct {
		name  string
		patch Patch
	}{
		{name: "add", patch: AddPatch("R1", []types.PendingEntry{{ID: "x-1-a", Quantity: 1, IsNew: true}})},
		{name: "confirm", patch: ConfirmPatch("R1", "5")},
		{name: "cancel", patch: CancelPatch("R1", "5")},
		{name: "unknown reservation", patch: CancelPatch("R404", "5")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := pendingSnapshot()
			ApplyPatch(input, tt.patch)
			assert.Equal(t, pendingSnapshot(), input)
		})
	}
}

func TestApplyPatchNilValue(t *testing.T) {
	assert.Nil(t, ApplyPatch(nil, ConfirmPatch("R1", "5")))
}

func TestApplyPatchUnknownReservation(t *testing.T) {
	out := ApplyPatch(pendingSnapshot(), AddPatch("R404", []types.PendingEntry{{ID: "x-1-a"}}))
	assert.Equal(t, pendingSnapshot(), out)
}

func TestMutationKindString(t *testing.T) {
	assert.Equal(t, "add", MutationAdd.String())
	assert.Equal(t, "confirm", MutationConfirm.String())
	assert.Equal(t, "cancel", MutationCancel.String())
	assert.Equal(t, "unknown(0)", MutationKind(0).String())
}

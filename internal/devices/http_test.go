package devices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"homehub/internal/models"
	"homehub/internal/notify"
	"homehub/internal/repo/mocks"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type notifierMock struct {
	mock.Mock
}

func (n *notifierMock) Notify(ctx context.Context, ev notify.Event) {
	n.Called(ev)
}

func setupRouter(t *testing.T) (*mux.Router, *mocks.StoreMock, *notifierMock) {
	t.Helper()
	store := new(mocks.StoreMock)
	n := new(notifierMock)
	r := mux.NewRouter()
	NewHTTP(NewService(store, n)).RegisterRoutes(r)
	return r, store, n
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

const registerBody = `{"devices_id":"D1","owner_id":"U1","house_id":"H1","floor_id":"F1","room_id":"R1",
"house_name":"Home","floor_name":"1F","room_name":"Lounge","devices_name":"Hub1"}`

const updateBody = `{"owner_id":"U1","devices_id":"D1","house_id":"H1","floor_id":"F1","room_id":"R1",
"house_name":"Home","floor_name":"1F","room_name":"Lounge","eqp_no":"1","eqp_name":"Eqp 1","eqp_state":"on"}`

func TestRegisterDevice(t *testing.T) {
	r, store, n := setupRouter(t)

	var stored *models.Device
	store.On("InsertDevice", mock.Anything, mock.AnythingOfType("*models.Device")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.Device) }).
		Return("66f1c0ffee", nil)
	n.On("Notify", mock.MatchedBy(func(ev notify.Event) bool {
		return ev.Kind == notify.KindDeviceRegistered && ev.DevicesID == "D1"
	})).Return()

	rec := do(r, http.MethodPost, "/register_device", registerBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"data saved successfully"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "66f1c0ffee")

	require.NotNil(t, stored)
	assert.Equal(t, "Hub1", stored.DevicesName)
	assert.Equal(t, "Lounge", stored.RoomName)
	assert.Equal(t, models.DefaultEquipments(), stored.Equipments)
	store.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestRegisterDeviceTemplateIndependentOfInput(t *testing.T) {
	r, store, n := setupRouter(t)

	var got [][]models.Equipment
	store.On("InsertDevice", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = append(got, args.Get(1).(*models.Device).Equipments) }).
		Return("1", nil)
	n.On("Notify", mock.Anything).Return()

	do(r, http.MethodPost, "/register_device", `{}`)
	do(r, http.MethodPost, "/register_device", `{"devices_id":"X","equipments":[{"eqp_no":"99"}]}`)

	require.Len(t, got, 2)
	for _, eqs := range got {
		assert.Equal(t, models.DefaultEquipments(), eqs)
	}
	got[0][0].EqpState = "on"
	assert.Equal(t, false, got[1][0].EqpState)
}

func TestRegisterDeviceStoreError(t *testing.T) {
	r, store, n := setupRouter(t)
	store.On("InsertDevice", mock.Anything, mock.Anything).Return("", errors.New("no reachable servers"))

	rec := do(r, http.MethodPost, "/register_device", registerBody)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	n.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestRegisterDeviceInvalidJSON(t *testing.T) {
	r, store, _ := setupRouter(t)

	rec := do(r, http.MethodPost, "/register_device", `{"devices_id":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid JSON body"}`, rec.Body.String())
	store.AssertNotCalled(t, "InsertDevice", mock.Anything, mock.Anything)
}

func TestUpdateEquipment(t *testing.T) {
	r, store, n := setupRouter(t)
	store.On("UpdateEquipmentState", mock.Anything, "D1", "1", "on").Return(true, nil)
	n.On("Notify", mock.MatchedBy(func(ev notify.Event) bool {
		return ev.Kind == notify.KindEquipmentChanged && ev.EqpNo == "1" && ev.EqpState == "on" && ev.Matched
	})).Return()

	rec := do(r, http.MethodPost, "/update_eqp", updateBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Eqp 1 equipment on successfully"}`, rec.Body.String())
	store.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestUpdateEquipmentUnknownTargetStillSucceeds(t *testing.T) {
	r, store, n := setupRouter(t)
	store.On("UpdateEquipmentState", mock.Anything, "D1", "1", "on").Return(false, nil)
	n.On("Notify", mock.Anything).Return()

	first := do(r, http.MethodPost, "/update_eqp", updateBody)
	second := do(r, http.MethodPost, "/update_eqp", updateBody)

	for _, rec := range []*httptest.ResponseRecorder{first, second} {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Eqp 1 equipment on successfully"}`, rec.Body.String())
	}
	store.AssertNumberOfCalls(t, "UpdateEquipmentState", 2)
}

func TestUpdateEquipmentMissingFields(t *testing.T) {
	cases := []struct {
		name    string
		drop    []string
		missing []string
	}{
		{"one", []string{"house_id"}, []string{"house_id"}},
		{"several", []string{"owner_id", "room_name", "eqp_no"}, []string{"owner_id", "room_name", "eqp_no"}},
		{"state", []string{"eqp_state"}, []string{"eqp_state"}},
		{"all", []string{
			"owner_id", "devices_id", "house_id", "floor_id", "room_id",
			"house_name", "floor_name", "room_name", "eqp_no", "eqp_name", "eqp_state",
		}, []string{
			"owner_id", "devices_id", "house_id", "floor_id", "room_id",
			"house_name", "floor_name", "room_name", "eqp_no", "eqp_state",
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, store, n := setupRouter(t)

			body := map[string]any{}
			require.NoError(t, json.Unmarshal([]byte(updateBody), &body))
			for _, k := range c.drop {
				delete(body, k)
			}
			b, _ := json.Marshal(body)

			rec := do(r, http.MethodPost, "/update_eqp", string(b))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var got models.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, "Missing required fields", got.Error)
			assert.Equal(t, c.missing, got.MissingFields)

			store.AssertNotCalled(t, "UpdateEquipmentState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			n.AssertNotCalled(t, "Notify", mock.Anything)
		})
	}
}

func TestUpdateEquipmentFalseStateIsMissing(t *testing.T) {
	r, store, _ := setupRouter(t)
	body := strings.Replace(updateBody, `"eqp_state":"on"`, `"eqp_state":false`, 1)

	rec := do(r, http.MethodPost, "/update_eqp", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing required fields","missing_fields":["eqp_state"]}`, rec.Body.String())
	store.AssertNotCalled(t, "UpdateEquipmentState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateEquipmentMissingName(t *testing.T) {
	r, store, _ := setupRouter(t)
	body := strings.Replace(updateBody, `"eqp_name":"Eqp 1"`, `"eqp_name":null`, 1)

	rec := do(r, http.MethodPost, "/update_eqp", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Each equipment must have 'eqp_no', 'eqp_name', and 'eqp_state'"}`, rec.Body.String())
	store.AssertNotCalled(t, "UpdateEquipmentState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateEquipmentStoreError(t *testing.T) {
	r, store, _ := setupRouter(t)
	store.On("UpdateEquipmentState", mock.Anything, "D1", "1", "on").Return(false, errors.New("timeout"))

	rec := do(r, http.MethodPost, "/update_eqp", updateBody)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestUpdateEquipmentWrongMethod(t *testing.T) {
	r, _, _ := setupRouter(t)
	rec := do(r, http.MethodGet, "/update_eqp", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetDevice(t *testing.T) {
	r, store, _ := setupRouter(t)
	d := RegisterRequest{DevicesID: "D1", DevicesName: "Hub1"}.Device()
	store.On("FindDeviceByID", mock.Anything, "D1").Return(d, nil)
	store.On("FindDeviceByID", mock.Anything, "D2").Return(nil, models.ErrDeviceNotFound)
	store.On("FindDeviceByID", mock.Anything, "D3").Return(nil, errors.New("boom"))

	rec := do(r, http.MethodGet, "/devices/D1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var got models.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Hub1", got.DevicesName)
	assert.Len(t, got.Equipments, 8)

	rec = do(r, http.MethodGet, "/devices/D2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"device not found"}`, rec.Body.String())

	rec = do(r, http.MethodGet, "/devices/D3", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServiceWithoutNotifier(t *testing.T) {
	store := new(mocks.StoreMock)
	store.On("UpdateEquipmentState", mock.Anything, "D1", "1", "on").Return(true, nil)

	res, err := NewService(store, nil).UpdateEquipment(context.Background(), validUpdate())

	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "Eqp 1 equipment on successfully", res.Message)
}

func TestServiceMessageFormatsNonStringState(t *testing.T) {
	store := new(mocks.StoreMock)
	store.On("UpdateEquipmentState", mock.Anything, "D1", "1", true).Return(true, nil)

	req := validUpdate()
	req.EqpState = true
	res, err := NewService(store, nil).UpdateEquipment(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "Eqp 1 equipment True successfully", res.Message)
}

func TestRegisterDeviceNonStringFields(t *testing.T) {
	r, store, n := setupRouter(t)

	var stored *models.Device
	store.On("InsertDevice", mock.Anything, mock.AnythingOfType("*models.Device")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.Device) }).
		Return("66f1c0ffee", nil)
	n.On("Notify", mock.Anything)

	rec := do(r, http.MethodPost, "/register_device", `{"devices_id":"D1","owner_id":123,"house_id":false}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"data saved successfully"}`, rec.Body.String())
	require.NotNil(t, stored)
	assert.Equal(t, "123", stored.OwnerID)
	assert.Equal(t, "false", stored.HouseID)
	assert.Equal(t, "", stored.RoomID)
	assert.Len(t, stored.Equipments, 8)
}

func TestUpdateEquipmentNumericFields(t *testing.T) {
	r, store, n := setupRouter(t)

	store.On("UpdateEquipmentState", mock.Anything, "D1", "1", int64(1)).Return(true, nil).Once()
	store.On("UpdateEquipmentState", mock.Anything, "D1", "1", 1.0).Return(true, nil).Once()
	n.On("Notify", mock.Anything)

	body := `{"owner_id":"U1","devices_id":"D1","house_id":"H1","floor_id":"F1","room_id":"R1",
"house_name":"Home","floor_name":"1F","room_name":"Lounge","eqp_no":1,"eqp_name":"Eqp 1","eqp_state":%s}`

	rec := do(r, http.MethodPost, "/update_eqp", fmt.Sprintf(body, "1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Eqp 1 equipment 1 successfully"}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/update_eqp", fmt.Sprintf(body, "1.0"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Eqp 1 equipment 1.0 successfully"}`, rec.Body.String())

	store.AssertExpectations(t)
}

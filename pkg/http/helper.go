package http

import (
	"encoding/json"
	"net/http"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
	"strconv"
	"strings"
)

const maxSearchLength = 100

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = int64(v)
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// ExtractOptionalInt parses an integer query parameter. A missing parameter
// yields nil.
func ExtractOptionalInt(r *http.Request, name string) (*int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid " + name + " parameter: " + s)
	}
	return &v, nil
}

// ExtractRoomFilter reads the optional floor, min_capacity and search
// parameters.
func ExtractRoomFilter(r *http.Request) (model.RoomFilter, error) {
	floor, err := ExtractOptionalInt(r, "floor")
	if err != nil {
		return model.RoomFilter{}, err
	}
	minCapacity, err := ExtractOptionalInt(r, "min_capacity")
	if err != nil {
		return model.RoomFilter{}, err
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	if len(search) > maxSearchLength {
		return model.RoomFilter{}, apperrors.InvalidInput("search must be at most 100 characters")
	}
	return model.RoomFilter{Floor: floor, MinCapacity: minCapacity, Search: search}, nil
}

// DecodeJSON decodes the request body, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.InvalidInput("Invalid request body: " + err.Error())
	}
	return nil
}

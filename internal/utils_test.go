/*
 * Copyright (c) 2026. Anton Starikov -- All Rights Reserved
 *
 * This file is part of MZVC project.
 *
 * MZVC is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestExtractPlainFloat(t *testing.T) {
	v, err := extractF64PlainOrJson(&fakeMessage{topic: "t", payload: []byte("21.35")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 21.35, v)
}

func TestExtractJSONEntry(t *testing.T) {
	entry := "temperature"
	msg := &fakeMessage{topic: "t", payload: []byte(`{"temperature": 19.8, "humidity": 40}`)}

	v, err := extractF64PlainOrJson(msg, &entry)
	require.NoError(t, err)
	assert.Equal(t, 19.8, v)
}

func TestExtractJSONEntryMissing(t *testing.T) {
	entry := "temperature"
	msg := &fakeMessage{topic: "t", payload: []byte(`{"humidity": 40}`)}

	_, err := extractF64PlainOrJson(msg, &entry)
	assert.Error(t, err)
}

func TestExtractRejectsGarbage(t *testing.T) {
	_, err := extractF64PlainOrJson(&fakeMessage{topic: "t", payload: []byte("warm")}, nil)
	assert.Error(t, err)

	entry := "temperature"
	_, err = extractF64PlainOrJson(&fakeMessage{topic: "t", payload: []byte("not json")}, &entry)
	assert.Error(t, err)
}

func TestLastTopicPart(t *testing.T) {
	assert.Equal(t, "target", lastTopicPart("mzvc/control/zone/living/target"))
	assert.Equal(t, "plain", lastTopicPart("plain"))
}

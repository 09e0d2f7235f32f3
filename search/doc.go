// Copyright 2025 Poiesic Systems
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


// Package search resolves a query string to a stored record.
//
// Resolution is a plain case-insensitive substring match over the
// collection's records in stored order; the first match wins. Vectors are
// not consulted. The Resolver type keeps that contract behind a stable
// signature so a ranked strategy can replace it later.
package search

// Copyright 2026 The Lexgate Authors
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

package http

import (
	"context"

	"github.com/lexgate/lexgate/internal/authz"
)

type contextKey string

const accessContextKey contextKey = "access_context"

// WithAccessContext stores the verified access context for the request.
// Only AuthMiddleware writes it; handlers read it back with GetAccessContext.
func WithAccessContext(ctx context.Context, access authz.AccessContext) context.Context {
	return context.WithValue(ctx, accessContextKey, access)
}

// GetAccessContext retrieves the request's access context. The second return
// is false on routes that never passed AuthMiddleware.
func GetAccessContext(ctx context.Context) (authz.AccessContext, bool) {
	access, ok := ctx.Value(accessContextKey).(authz.AccessContext)
	return access, ok
}

package user

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "student", want: RoleStudent},
		{in: " Instructor ", want: RoleInstructor},
		{in: "ADMIN", want: RoleAdmin},
		{in: "teacher", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseRole(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseRole(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseRole(%q): want=%q got=%q err=%v", tc.in, tc.want, got, err)
		}
	}
}

func TestSelfAssignable(t *testing.T) {
	if !RoleStudent.SelfAssignable() || !RoleInstructor.SelfAssignable() {
		t.Fatal("student and instructor must be self-assignable")
	}
	if RoleAdmin.SelfAssignable() {
		t.Fatal("admin must not be self-assignable")
	}
	if Role("ghost").SelfAssignable() {
		t.Fatal("unknown role must not be self-assignable")
	}
}
